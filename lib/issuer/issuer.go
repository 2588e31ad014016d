// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package issuer is the trusted token factory: it authenticates
// entities, mints and renews master tokens and user tokens, and
// validates master tokens presented back to it.
//
// The issuer protects every token it mints with its own CryptoContext
// (see [Keys]). It never protects a token with the session keys that
// token carries.
//
// Renewal follows the lineage rules of lib/mastertoken: a renewed
// master token keeps the serial number, takes the next sequence
// number, and receives fresh session keys. Only the newest token of a
// lineage may be renewed, and the [tokenstore.Store] arbitrates races
// between concurrent renewals. Revoking a serial number ends the
// lineage.
package issuer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/msl/lib/clock"
	"github.com/bureau-foundation/msl/lib/codec"
	"github.com/bureau-foundation/msl/lib/cryptocontext"
	"github.com/bureau-foundation/msl/lib/entityauth"
	"github.com/bureau-foundation/msl/lib/mastertoken"
	"github.com/bureau-foundation/msl/lib/mslerror"
	"github.com/bureau-foundation/msl/lib/primitive"
	"github.com/bureau-foundation/msl/lib/token"
	"github.com/bureau-foundation/msl/lib/tokenstore"
	"github.com/bureau-foundation/msl/lib/useridtoken"
)

// Default token lifetimes, measured from issue time.
const (
	DefaultRenewalOffset        = 12 * time.Hour
	DefaultExpirationOffset     = 24 * time.Hour
	DefaultUserRenewalOffset    = 1 * time.Hour
	DefaultUserExpirationOffset = 2 * time.Hour
)

// Config configures an Issuer. CryptoContext is required.
type Config struct {
	// CryptoContext encrypts and signs every token. Usually
	// Keys.CryptoContext.
	CryptoContext cryptocontext.CryptoContext

	// Provider supplies randomness for keys and serial numbers. Nil
	// selects primitive.Default.
	Provider primitive.Provider

	// Clock is the time source. Nil selects clock.Real.
	Clock clock.Clock

	// Logger receives issuance and rejection events. Nil discards.
	Logger *slog.Logger

	// Format is the wire format of minted token data. Zero selects
	// codec.JSON.
	Format codec.Format

	// Store arbitrates renewals. Nil selects a fresh in-memory store.
	Store tokenstore.Store

	// Revocations is the revoked lineage set. Nil selects an empty
	// set.
	Revocations *Revocations

	// Entities authenticates entity claims. Nil refuses every scheme.
	Entities *entityauth.Registry

	// Registerer receives the issuer's metrics. Nil leaves them
	// unregistered.
	Registerer prometheus.Registerer

	// Token lifetimes. Zero selects the Default* constants.
	RenewalOffset        time.Duration
	ExpirationOffset     time.Duration
	UserRenewalOffset    time.Duration
	UserExpirationOffset time.Duration
}

// Issuer mints and validates tokens. Safe for concurrent use.
type Issuer struct {
	context     cryptocontext.CryptoContext
	provider    primitive.Provider
	clock       clock.Clock
	logger      *slog.Logger
	format      codec.Format
	store       tokenstore.Store
	revocations *Revocations
	entities    *entityauth.Registry
	metrics     *metrics

	renewalOffset        time.Duration
	expirationOffset     time.Duration
	userRenewalOffset    time.Duration
	userExpirationOffset time.Duration
}

// New creates an Issuer.
func New(cfg Config) (*Issuer, error) {
	if cfg.CryptoContext == nil {
		return nil, fmt.Errorf("issuer: CryptoContext is required")
	}
	issuer := &Issuer{
		context:              cfg.CryptoContext,
		provider:             cfg.Provider,
		clock:                cfg.Clock,
		logger:               cfg.Logger,
		format:               cfg.Format,
		store:                cfg.Store,
		revocations:          cfg.Revocations,
		entities:             cfg.Entities,
		renewalOffset:        orDefault(cfg.RenewalOffset, DefaultRenewalOffset),
		expirationOffset:     orDefault(cfg.ExpirationOffset, DefaultExpirationOffset),
		userRenewalOffset:    orDefault(cfg.UserRenewalOffset, DefaultUserRenewalOffset),
		userExpirationOffset: orDefault(cfg.UserExpirationOffset, DefaultUserExpirationOffset),
	}
	if issuer.provider == nil {
		issuer.provider = primitive.Default()
	}
	if issuer.clock == nil {
		issuer.clock = clock.Real()
	}
	if issuer.logger == nil {
		issuer.logger = slog.New(slog.DiscardHandler)
	}
	if issuer.format == 0 {
		issuer.format = codec.JSON
	}
	if issuer.store == nil {
		issuer.store = tokenstore.NewMemory()
	}
	if issuer.revocations == nil {
		issuer.revocations = NewRevocations()
	}
	if issuer.expirationOffset < issuer.renewalOffset {
		return nil, fmt.Errorf("issuer: expiration offset %s is before renewal offset %s", issuer.expirationOffset, issuer.renewalOffset)
	}
	if issuer.userExpirationOffset < issuer.userRenewalOffset {
		return nil, fmt.Errorf("issuer: user expiration offset %s is before renewal offset %s", issuer.userExpirationOffset, issuer.userRenewalOffset)
	}
	var err error
	issuer.metrics, err = newMetrics(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("issuer: registering metrics: %w", err)
	}
	return issuer, nil
}

func orDefault(value, fallback time.Duration) time.Duration {
	if value == 0 {
		return fallback
	}
	return value
}

// CryptoContext returns the issuer's own context.
func (issuer *Issuer) CryptoContext() cryptocontext.CryptoContext { return issuer.context }

// Revocations returns the revoked lineage set.
func (issuer *Issuer) Revocations() *Revocations { return issuer.revocations }

// AuthenticateEntity returns the context that authenticates the entity
// making claim.
func (issuer *Issuer) AuthenticateEntity(claim entityauth.Data) (cryptocontext.CryptoContext, error) {
	if issuer.entities == nil {
		return nil, issuer.metrics.reject(mslerror.New(mslerror.EntityAuthNotSupported, "scheme %s", claim.Scheme()))
	}
	entityContext, err := issuer.entities.CryptoContext(claim)
	if err != nil {
		issuer.logger.Warn("entity authentication refused",
			"scheme", string(claim.Scheme()),
			"identity", claim.Identity(),
			"reason", err.Error(),
		)
		return nil, issuer.metrics.reject(err)
	}
	return entityContext, nil
}

// CreateMasterToken starts a new lineage for the authenticated entity:
// a random serial number, a random sequence number, and fresh session
// keys.
func (issuer *Issuer) CreateMasterToken(ctx context.Context, claim entityauth.Data, issuerData []byte) (*mastertoken.Trusted, error) {
	serialNumber, err := token.RandomSerial(issuer.provider)
	if err != nil {
		return nil, err
	}
	sequenceNumber, err := token.RandomSerial(issuer.provider)
	if err != nil {
		return nil, err
	}
	trusted, err := issuer.mintMaster(ctx, claim.Identity(), serialNumber, sequenceNumber, issuerData)
	if err != nil {
		return nil, err
	}
	issuer.metrics.issued.WithLabelValues(kindMaster).Inc()
	issuer.logger.Info("master token issued",
		"identity", claim.Identity(),
		"scheme", string(claim.Scheme()),
		"serial_number", serialNumber,
		"sequence_number", sequenceNumber,
	)
	return trusted, nil
}

// RenewMasterToken mints the successor of current. It refuses revoked
// lineages, expired tokens, lineages the store holds no record of, and
// any token that is not the newest of its lineage. A nil issuerData
// carries the current token's issuer data forward.
func (issuer *Issuer) RenewMasterToken(ctx context.Context, current *mastertoken.Trusted, issuerData []byte) (*mastertoken.Trusted, error) {
	masterToken := current.Token()
	serialNumber := masterToken.SerialNumber()
	if issuer.revocations.IsRevoked(serialNumber) {
		return nil, issuer.metrics.reject(mslerror.New(mslerror.MasterTokenRevoked, "serial number %d", serialNumber))
	}
	if masterToken.IsExpired(issuer.clock.Now()) {
		return nil, issuer.metrics.reject(mslerror.New(mslerror.MasterTokenExpired,
			"serial number %d expired %s", serialNumber, masterToken.Expiration().UTC().Format(time.RFC3339)))
	}
	record, found, err := issuer.store.Newest(ctx, serialNumber)
	if err != nil {
		return nil, err
	}
	if !found {
		// Purged or never minted here: nothing proves the lineage is
		// still live.
		return nil, issuer.metrics.reject(mslerror.New(mslerror.MasterTokenNotNewest,
			"serial number %d has no recorded lineage", serialNumber))
	}
	if record.IsNewerThan(tokenstore.RecordOf(masterToken)) {
		return nil, issuer.metrics.reject(mslerror.New(mslerror.MasterTokenNotNewest,
			"serial number %d sequence number %d", serialNumber, masterToken.SequenceNumber()))
	}
	if issuerData == nil {
		issuerData = current.IssuerData()
	}

	sequenceNumber := token.NextSequence(masterToken.SequenceNumber())
	renewed, err := issuer.mintMaster(ctx, current.Identity(), serialNumber, sequenceNumber, issuerData)
	if err != nil {
		return nil, err
	}
	if issuer.revocations.IsRevoked(serialNumber) {
		// Revoked while minting: stretch the revocation over the
		// successor and withhold it.
		issuer.revocations.Revoke(serialNumber, renewed.Token().Expiration())
		return nil, issuer.metrics.reject(mslerror.New(mslerror.MasterTokenRevoked, "serial number %d", serialNumber))
	}
	issuer.metrics.renewed.WithLabelValues(kindMaster).Inc()
	issuer.logger.Info("master token renewed",
		"identity", current.Identity(),
		"serial_number", serialNumber,
		"sequence_number", sequenceNumber,
	)
	return renewed, nil
}

func (issuer *Issuer) mintMaster(ctx context.Context, identity string, serialNumber, sequenceNumber int64, issuerData []byte) (*mastertoken.Trusted, error) {
	sessionKeys, err := mastertoken.GenerateSessionKeys(issuer.provider)
	if err != nil {
		return nil, err
	}
	now := issuer.clock.Now()
	masterToken, err := mastertoken.Create(issuer.context, issuer.format, mastertoken.Params{
		RenewalWindow:  now.Add(issuer.renewalOffset),
		Expiration:     now.Add(issuer.expirationOffset),
		SequenceNumber: sequenceNumber,
		SerialNumber:   serialNumber,
		Identity:       identity,
		IssuerData:     issuerData,
		SessionKeys:    sessionKeys,
	})
	if err != nil {
		return nil, err
	}
	accepted, err := issuer.store.Accept(ctx, masterToken)
	if err != nil {
		return nil, err
	}
	if !accepted {
		// A concurrent renewal of the same lineage won.
		return nil, issuer.metrics.reject(mslerror.New(mslerror.MasterTokenNotNewest,
			"serial number %d sequence number %d lost a concurrent renewal", serialNumber, sequenceNumber))
	}
	return masterToken.Trust()
}

// IsNewestMasterToken reports whether trusted is the newest recorded
// token of its lineage. A lineage the store holds no record of is not
// newest.
func (issuer *Issuer) IsNewestMasterToken(ctx context.Context, trusted *mastertoken.Trusted) (bool, error) {
	masterToken := trusted.Token()
	record, found, err := issuer.store.Newest(ctx, masterToken.SerialNumber())
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return !record.IsNewerThan(tokenstore.RecordOf(masterToken)), nil
}

// ValidateMasterToken parses a master token presented to the issuer
// and checks, in order, its signature, its lineage's revocation, and
// its expiration.
func (issuer *Issuer) ValidateMasterToken(format codec.Format, encoded []byte) (*mastertoken.Trusted, error) {
	masterToken, err := mastertoken.Parse(format, encoded, issuer.context)
	if err != nil {
		return nil, issuer.metrics.reject(err)
	}
	trusted, err := masterToken.Trust()
	if err != nil {
		return nil, issuer.metrics.reject(err)
	}
	if issuer.revocations.IsRevoked(masterToken.SerialNumber()) {
		return nil, issuer.metrics.reject(mslerror.New(mslerror.MasterTokenRevoked, "serial number %d", masterToken.SerialNumber()))
	}
	if masterToken.IsExpired(issuer.clock.Now()) {
		return nil, issuer.metrics.reject(mslerror.New(mslerror.MasterTokenExpired,
			"serial number %d expired %s", masterToken.SerialNumber(), masterToken.Expiration().UTC().Format(time.RFC3339)))
	}
	return trusted, nil
}

// RevokeMasterToken revokes the lineage of trusted. The revocation
// lasts until the newest recorded token of the lineage expires, so
// revoking a superseded token also covers its successors.
func (issuer *Issuer) RevokeMasterToken(ctx context.Context, trusted *mastertoken.Trusted) error {
	masterToken := trusted.Token()
	serialNumber := masterToken.SerialNumber()
	lineageExpiresAt := masterToken.Expiration()
	record, found, err := issuer.store.Newest(ctx, serialNumber)
	if err != nil {
		return fmt.Errorf("looking up lineage %d: %w", serialNumber, err)
	}
	if found && record.Expiration.After(lineageExpiresAt) {
		lineageExpiresAt = record.Expiration
	}
	issuer.revocations.Revoke(serialNumber, lineageExpiresAt)
	issuer.logger.Info("master token lineage revoked",
		"identity", trusted.Identity(),
		"serial_number", serialNumber,
		"until", lineageExpiresAt.UTC().Format(time.RFC3339),
	)
	return nil
}

// CreateUserIdToken binds user to the lineage of master.
func (issuer *Issuer) CreateUserIdToken(user string, master *mastertoken.Trusted, issuerData []byte) (*useridtoken.UserIdToken, error) {
	if err := issuer.checkUsable(master); err != nil {
		return nil, err
	}
	serialNumber, err := token.RandomSerial(issuer.provider)
	if err != nil {
		return nil, err
	}
	userIdToken, err := issuer.mintUser(master, serialNumber, user, issuerData)
	if err != nil {
		return nil, err
	}
	issuer.metrics.issued.WithLabelValues(kindUser).Inc()
	issuer.logger.Info("user ID token issued",
		"identity", master.Identity(),
		"serial_number", serialNumber,
		"master_serial_number", master.Token().SerialNumber(),
	)
	return userIdToken, nil
}

// RenewUserIdToken mints a user token with the same serial number and
// user and a new validity window. current must be trusted and bound to
// master's lineage.
func (issuer *Issuer) RenewUserIdToken(current *useridtoken.UserIdToken, master *mastertoken.Trusted) (*useridtoken.UserIdToken, error) {
	if _, err := current.Trust(); err != nil {
		return nil, issuer.metrics.reject(err)
	}
	if !current.IsBoundTo(master.Token()) {
		return nil, issuer.metrics.reject(mslerror.New(mslerror.UserIdTokenMismatch,
			"user ID token bound to %d, master token %d", current.MasterTokenSerialNumber(), master.Token().SerialNumber()))
	}
	if err := issuer.checkUsable(master); err != nil {
		return nil, err
	}
	user, _ := current.User()
	renewed, err := issuer.mintUser(master, current.SerialNumber(), user, current.IssuerData())
	if err != nil {
		return nil, err
	}
	issuer.metrics.renewed.WithLabelValues(kindUser).Inc()
	issuer.logger.Info("user ID token renewed",
		"identity", master.Identity(),
		"serial_number", current.SerialNumber(),
	)
	return renewed, nil
}

// checkUsable refuses master tokens that may not anchor new user
// tokens.
func (issuer *Issuer) checkUsable(master *mastertoken.Trusted) error {
	masterToken := master.Token()
	if issuer.revocations.IsRevoked(masterToken.SerialNumber()) {
		return issuer.metrics.reject(mslerror.New(mslerror.MasterTokenRevoked, "serial number %d", masterToken.SerialNumber()))
	}
	if masterToken.IsExpired(issuer.clock.Now()) {
		return issuer.metrics.reject(mslerror.New(mslerror.MasterTokenExpired, "serial number %d", masterToken.SerialNumber()))
	}
	return nil
}

func (issuer *Issuer) mintUser(master *mastertoken.Trusted, serialNumber int64, user string, issuerData []byte) (*useridtoken.UserIdToken, error) {
	now := issuer.clock.Now()
	return useridtoken.Create(issuer.context, issuer.format, master.Token(), useridtoken.Params{
		RenewalWindow: now.Add(issuer.userRenewalOffset),
		Expiration:    now.Add(issuer.userExpirationOffset),
		SerialNumber:  serialNumber,
		User:          user,
		IssuerData:    issuerData,
	})
}

// Cleanup drops expired revocations and expired lineages from the
// store.
func (issuer *Issuer) Cleanup(ctx context.Context) (revocations, lineages int, err error) {
	now := issuer.clock.Now()
	revocations = issuer.revocations.Cleanup(now)
	lineages, err = issuer.store.Purge(ctx, now)
	if err != nil {
		return revocations, 0, err
	}
	if revocations > 0 || lineages > 0 {
		issuer.logger.Info("issuer cleanup", "revocations", revocations, "lineages", lineages)
	}
	return revocations, lineages, nil
}
