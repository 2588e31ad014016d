// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/msl/lib/codec"
	"github.com/bureau-foundation/msl/lib/entityauth"
	"github.com/bureau-foundation/msl/lib/issuer"
	"github.com/bureau-foundation/msl/lib/keystore"
	"github.com/bureau-foundation/msl/lib/mastertoken"
	"github.com/bureau-foundation/msl/lib/primitive"
	"github.com/bureau-foundation/msl/lib/sealed"
	"github.com/bureau-foundation/msl/lib/servicetoken"
	"github.com/bureau-foundation/msl/lib/useridtoken"
	"github.com/bureau-foundation/msl/lib/wrapkey"
)

// runKeygen loads the issuer keys in the state directory, generating
// them when the directory has none. Key material is never printed.
func runKeygen(args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
	var configPath, stateDir string
	addConfigFlag(flags, &configPath)
	flags.StringVar(&stateDir, "state-dir", "", "issuer state directory (overrides issuer.state_dir)")
	if err := parseFlags(flags, args, stderr); err != nil {
		return helpOK(err)
	}

	if stateDir == "" {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if err := cfg.EnsureStateDir(); err != nil {
			return err
		}
		stateDir = cfg.Issuer.StateDir
	} else if err := os.MkdirAll(stateDir, 0700); err != nil {
		return fmt.Errorf("creating %s: %w", stateDir, err)
	}

	_, generated, err := issuer.LoadOrGenerateKeys(stateDir, nil)
	if err != nil {
		return err
	}
	if generated {
		fmt.Fprintf(stdout, "generated issuer keys in %s\n", stateDir)
	} else {
		fmt.Fprintf(stdout, "issuer keys already present in %s\n", stateDir)
	}
	return nil
}

// runAgeKeygen writes a new age identity file and prints its public
// key.
func runAgeKeygen(args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("age-keygen", pflag.ContinueOnError)
	var output string
	flags.StringVarP(&output, "output", "o", "", "identity file to create (required)")
	if err := parseFlags(flags, args, stderr); err != nil {
		return helpOK(err)
	}
	if output == "" {
		flags.Usage()
		return fmt.Errorf("--output is required")
	}

	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return err
	}
	if err := sealed.WriteIdentityFile(output, keypair, time.Now()); err != nil {
		return err
	}
	fmt.Fprintln(stdout, keypair.Recipient)
	return nil
}

// runPSKKeygen prints a key store document holding fresh pre-shared
// keys for one identity, optionally sealed to age recipients.
func runPSKKeygen(args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("psk-keygen", pflag.ContinueOnError)
	var identity string
	var withWrapping bool
	var recipients []string
	flags.StringVar(&identity, "identity", "", "entity identity (required)")
	flags.BoolVar(&withWrapping, "wrapping-key", false, "store the derived wrapping key instead of deriving it on use")
	flags.StringSliceVar(&recipients, "seal-to", nil, "age recipient to seal the output to (repeatable)")
	if err := parseFlags(flags, args, stderr); err != nil {
		return helpOK(err)
	}
	if identity == "" {
		flags.Usage()
		return fmt.Errorf("--identity is required")
	}

	generated, err := issuer.GenerateKeys(nil)
	if err != nil {
		return err
	}
	keys := entityauth.PresharedKeys{Encryption: generated.Encryption, HMAC: generated.HMAC}
	if withWrapping {
		material, err := wrapkey.Derive(keys.Encryption.Material(), keys.HMAC.Material())
		if err != nil {
			return err
		}
		keys.Wrapping, err = primitive.NewSecretKey(primitive.AESKW, material)
		if err != nil {
			return err
		}
	}

	document, err := keystore.File{Preshared: []keystore.PresharedEntry{
		keystore.NewPresharedEntry(identity, keys),
	}}.Marshal()
	if err != nil {
		return err
	}
	if len(recipients) > 0 {
		document, err = sealed.Encrypt(document, recipients)
		if err != nil {
			return err
		}
	}
	_, err = stdout.Write(document)
	return err
}

// runDeriveWrapKey prints the base64 wrapping key derived from base64
// encryption and HMAC keys.
func runDeriveWrapKey(args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("derive-wrap-key", pflag.ContinueOnError)
	var encryptionKey, hmacKey string
	flags.StringVar(&encryptionKey, "encryption-key", "", "base64 encryption key (required)")
	flags.StringVar(&hmacKey, "hmac-key", "", "base64 HMAC key (required)")
	if err := parseFlags(flags, args, stderr); err != nil {
		return helpOK(err)
	}
	if encryptionKey == "" || hmacKey == "" {
		flags.Usage()
		return fmt.Errorf("--encryption-key and --hmac-key are required")
	}

	wrapping, err := wrapkey.DeriveFromStrings(encryptionKey, hmacKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, base64.StdEncoding.EncodeToString(wrapping))
	return nil
}

// claimFlags builds entity authentication data from --scheme,
// --identity, --key-id and --suffix.
type claimFlags struct {
	scheme   string
	identity string
	keyID    string
	suffix   string
}

func (claim *claimFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&claim.scheme, "scheme", string(entityauth.SchemePreshared), "entity authentication scheme: PSK, MGK, RSA, ECC, NONE, NONE_SUFFIXED")
	flags.StringVar(&claim.identity, "identity", "", "entity identity (root identity for NONE_SUFFIXED) (required)")
	flags.StringVar(&claim.keyID, "key-id", "", "public key id for RSA and ECC")
	flags.StringVar(&claim.suffix, "suffix", "", "identity suffix for NONE_SUFFIXED")
}

func (claim *claimFlags) data() (entityauth.Data, error) {
	if claim.identity == "" {
		return nil, fmt.Errorf("--identity is required")
	}
	switch entityauth.Scheme(claim.scheme) {
	case entityauth.SchemePreshared:
		return entityauth.NewPreshared(claim.identity), nil
	case entityauth.SchemeModelGroup:
		return entityauth.NewModelGroup(claim.identity), nil
	case entityauth.SchemeRSA, entityauth.SchemeECC:
		if claim.keyID == "" {
			return nil, fmt.Errorf("--key-id is required for %s", claim.scheme)
		}
		if entityauth.Scheme(claim.scheme) == entityauth.SchemeRSA {
			return entityauth.NewRSA(claim.identity, claim.keyID), nil
		}
		return entityauth.NewECC(claim.identity, claim.keyID), nil
	case entityauth.SchemeUnauthenticated:
		return entityauth.NewUnauthenticated(claim.identity), nil
	case entityauth.SchemeUnauthenticatedSuffixed:
		if claim.suffix == "" {
			return nil, fmt.Errorf("--suffix is required for %s", claim.scheme)
		}
		return entityauth.NewUnauthenticatedSuffixed(claim.identity, claim.suffix), nil
	default:
		return nil, fmt.Errorf("unknown scheme %q", claim.scheme)
	}
}

// runIssue authenticates an entity claim against the key store and
// mints a master token for it, and a user ID token when --user is
// given.
func runIssue(args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("issue", pflag.ContinueOnError)
	var configPath, output, user, userOutput, issuerData string
	var claim claimFlags
	addConfigFlag(flags, &configPath)
	claim.register(flags)
	flags.StringVarP(&output, "output", "o", "-", "master token output file (- for stdout)")
	flags.StringVar(&user, "user", "", "also mint a user ID token for this user")
	flags.StringVar(&userOutput, "user-output", "", "user ID token output file (required with --user)")
	flags.StringVar(&issuerData, "issuer-data", "", "opaque issuer data to embed")
	if err := parseFlags(flags, args, stderr); err != nil {
		return helpOK(err)
	}
	data, err := claim.data()
	if err != nil {
		flags.Usage()
		return err
	}
	if user != "" && userOutput == "" {
		return fmt.Errorf("--user-output is required with --user")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := openEnvironment(ctx, configPath, stderr)
	if err != nil {
		return err
	}
	defer env.Close()

	if _, err := env.issuer.AuthenticateEntity(data); err != nil {
		return err
	}
	var embedded []byte
	if issuerData != "" {
		embedded = []byte(issuerData)
	}
	master, err := env.issuer.CreateMasterToken(ctx, data, embedded)
	if err != nil {
		return err
	}
	encoded, err := master.Token().Encode(env.format)
	if err != nil {
		return err
	}
	if err := writeOutput(output, encoded, stdout); err != nil {
		return err
	}

	if user == "" {
		return nil
	}
	userIdToken, err := env.issuer.CreateUserIdToken(user, master, nil)
	if err != nil {
		return err
	}
	encoded, err = userIdToken.Encode(env.format)
	if err != nil {
		return err
	}
	return writeOutput(userOutput, encoded, stdout)
}

// runServiceToken mints a service token protected by the issuer keys,
// optionally bound to a master token and a user ID token.
func runServiceToken(args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("service-token", pflag.ContinueOnError)
	var configPath, name, dataFile, masterFile, userFile, output string
	var plaintext bool
	addConfigFlag(flags, &configPath)
	flags.StringVar(&name, "name", "", "service token name (required)")
	flags.StringVar(&dataFile, "data-file", "-", "file holding the service data (- for stdin)")
	flags.StringVar(&masterFile, "master", "", "bind to the master token in this file")
	flags.StringVar(&userFile, "user", "", "bind to the user ID token in this file (requires --master)")
	flags.BoolVar(&plaintext, "plaintext", false, "do not encrypt the service data")
	flags.StringVarP(&output, "output", "o", "-", "output file (- for stdout)")
	if err := parseFlags(flags, args, stderr); err != nil {
		return helpOK(err)
	}
	if name == "" {
		flags.Usage()
		return fmt.Errorf("--name is required")
	}

	env, err := openEnvironment(context.Background(), configPath, stderr)
	if err != nil {
		return err
	}
	defer env.Close()

	data, err := readInput(dataFile)
	if err != nil {
		return err
	}

	params := servicetoken.Params{
		Name:        name,
		Data:        data,
		Encrypt:     !plaintext,
		Compression: env.compression,
	}
	if masterFile != "" {
		trusted, err := readMasterToken(env, masterFile)
		if err != nil {
			return err
		}
		params.MasterToken = trusted.Token()
	}
	if userFile != "" {
		if params.MasterToken == nil {
			return fmt.Errorf("--user requires --master")
		}
		encoded, err := readInput(userFile)
		if err != nil {
			return err
		}
		format, err := codec.Detect(encoded)
		if err != nil {
			return err
		}
		userIdToken, err := useridtoken.Parse(format, encoded, env.context, params.MasterToken)
		if err != nil {
			return err
		}
		if params.UserIdToken, err = userIdToken.Trust(); err != nil {
			return err
		}
	}

	serviceToken, err := servicetoken.Create(env.context, env.format, params)
	if err != nil {
		return err
	}
	encoded, err := serviceToken.Encode(env.format)
	if err != nil {
		return err
	}
	return writeOutput(output, encoded, stdout)
}

func readMasterToken(env *environment, path string) (*mastertoken.Trusted, error) {
	encoded, err := readInput(path)
	if err != nil {
		return nil, err
	}
	format, err := codec.Detect(encoded)
	if err != nil {
		return nil, err
	}
	return env.issuer.ValidateMasterToken(format, encoded)
}

// runInspect prints the public fields of an encoded master token, and
// its protected fields when the issuer keys verify it.
func runInspect(args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	var configPath string
	var noVerify bool
	addConfigFlag(flags, &configPath)
	flags.BoolVar(&noVerify, "no-verify", false, "skip loading issuer keys; print only the public fields")
	if err := parseFlags(flags, args, stderr); err != nil {
		return helpOK(err)
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return fmt.Errorf("exactly one token file is required")
	}

	encoded, err := readInput(flags.Arg(0))
	if err != nil {
		return err
	}
	format, err := codec.Detect(encoded)
	if err != nil {
		return err
	}

	var masterToken *mastertoken.MasterToken
	if noVerify {
		masterToken, err = mastertoken.Parse(format, encoded, nil)
	} else {
		env, openErr := openEnvironment(context.Background(), configPath, stderr)
		if openErr != nil {
			return openErr
		}
		defer env.Close()
		masterToken, err = mastertoken.Parse(format, encoded, env.context)
	}
	if err != nil {
		if format == codec.CBOR {
			if diagnostic, diagErr := codec.Diagnose(encoded); diagErr == nil {
				fmt.Fprintf(stderr, "%s\n", diagnostic)
			}
		}
		return err
	}

	fmt.Fprintf(stdout, "format:          %s\n", format)
	fmt.Fprintf(stdout, "state:           %s\n", masterToken.State())
	fmt.Fprintf(stdout, "serial_number:   %d\n", masterToken.SerialNumber())
	fmt.Fprintf(stdout, "sequence_number: %d\n", masterToken.SequenceNumber())
	fmt.Fprintf(stdout, "renewal_window:  %s\n", masterToken.RenewalWindow().UTC().Format(time.RFC3339))
	fmt.Fprintf(stdout, "expiration:      %s\n", masterToken.Expiration().UTC().Format(time.RFC3339))
	if identity, ok := masterToken.Identity(); ok {
		fmt.Fprintf(stdout, "identity:        %s\n", identity)
	}
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
