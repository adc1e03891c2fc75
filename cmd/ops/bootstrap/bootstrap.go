package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// tokenByteLength is 256 bits of entropy, 64 hex characters.
const tokenByteLength = 32

// Parameter is one entry of the sunpump SSM inventory.
type Parameter struct {
	Key    string // category/key below /{env}/sunpump/
	EnvVar string // variable the services read; empty when not exported
	Secure bool
	Prompt string
	// Rule is a validator tag applied to operator input.
	Rule string
}

var (
	paramForecastSource = Parameter{
		Key:    "forecast/source",
		EnvVar: "FORECAST_SOURCE",
		Prompt: "Forecast source (s3://bucket/key, https:// URL or file path)",
		Rule:   "required",
	}
	paramQueueURL = Parameter{
		Key:    "advisory/queue_url",
		EnvVar: "ADVISORY_QUEUE_URL",
		Prompt: "Advisory SQS queue URL",
		Rule:   "required,url",
	}
	paramAdminKey = Parameter{
		Key:    "security/admin_api_key",
		Secure: true,
	}
	paramAdminKeyHash = Parameter{
		Key:    "security/admin_api_key_hash",
		EnvVar: "ADMIN_API_KEY_HASH",
		Secure: true,
	}
)

// operatorParams are collected from flags or prompted for.
var operatorParams = []Parameter{paramForecastSource, paramQueueURL}

// Runner walks the inventory and writes missing parameters.
type Runner struct {
	SSM       *SSMManager
	In        io.Reader
	Out       io.Writer
	Overwrite bool
	Logger    *slog.Logger

	validate *validator.Validate
	reader   *bufio.Reader
	// bcryptCost is lowered in tests.
	bcryptCost int
}

func NewRunner(ssmMgr *SSMManager, in io.Reader, out io.Writer, overwrite bool, logger *slog.Logger) *Runner {
	return &Runner{
		SSM:        ssmMgr,
		In:         in,
		Out:        out,
		Overwrite:  overwrite,
		Logger:     logger,
		validate:   validator.New(),
		reader:     bufio.NewReader(in),
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Run seeds every parameter. values holds flag-provided input keyed by
// Parameter.Key; anything missing is prompted for on In.
func (r *Runner) Run(ctx context.Context, values map[string]string) error {
	for _, p := range operatorParams {
		if err := r.ensure(ctx, p, values[p.Key]); err != nil {
			return err
		}
	}
	if err := r.ensureAdminKey(ctx); err != nil {
		return err
	}
	r.printWiring()
	return nil
}

func (r *Runner) ensure(ctx context.Context, p Parameter, provided string) error {
	path := r.SSM.Path(p.Key)
	if !r.Overwrite {
		exists, err := r.SSM.Exists(ctx, path)
		if err != nil {
			return err
		}
		if exists {
			r.Logger.Info("parameter already set, skipping", "path", path)
			return nil
		}
	}

	value := strings.TrimSpace(provided)
	if value == "" {
		var err error
		if value, err = r.prompt(p.Prompt); err != nil {
			return err
		}
	}
	if err := r.validate.Var(value, p.Rule); err != nil {
		return fmt.Errorf("invalid value for %s: %w", p.Key, err)
	}
	return r.SSM.Put(ctx, path, value, p.Secure, r.Overwrite)
}

// ensureAdminKey generates the admin key and stores it next to its bcrypt
// hash. The services only ever see the hash.
func (r *Runner) ensureAdminKey(ctx context.Context) error {
	hashPath := r.SSM.Path(paramAdminKeyHash.Key)
	if !r.Overwrite {
		exists, err := r.SSM.Exists(ctx, hashPath)
		if err != nil {
			return err
		}
		if exists {
			r.Logger.Info("admin key already set, skipping", "path", hashPath)
			return nil
		}
	}

	key, err := GenerateSecureToken()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), r.bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing admin key: %w", err)
	}

	keyPath := r.SSM.Path(paramAdminKey.Key)
	if err := r.SSM.Put(ctx, keyPath, key, true, r.Overwrite); err != nil {
		return err
	}
	if err := r.SSM.Put(ctx, hashPath, string(hash), true, r.Overwrite); err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "Admin key stored at %s. Read it with:\n  aws ssm get-parameter --with-decryption --name %s\n\n", keyPath, keyPath)
	return nil
}

func (r *Runner) prompt(label string) (string, error) {
	fmt.Fprintf(r.Out, "%s: ", label)
	line, err := r.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("reading input for %q: %w", label, err)
	}
	return strings.TrimSpace(line), nil
}

// printWiring lists the _SSM_PARAM variables to set on each deployed
// function so config loading resolves the parameters.
func (r *Runner) printWiring() {
	fmt.Fprintln(r.Out, "Set these on the API and advisory worker:")
	for _, p := range []Parameter{paramForecastSource, paramQueueURL, paramAdminKeyHash} {
		fmt.Fprintf(r.Out, "  %s_SSM_PARAM=%s\n", p.EnvVar, r.SSM.Path(p.Key))
	}
}

// ExportEnv reads the parameters back and writes a .env for local runs.
// Parameters that cannot be read are left out with a warning.
func (r *Runner) ExportEnv(ctx context.Context, path string) error {
	env := map[string]string{
		"APP_ENV":   "local",
		"LOG_LEVEL": "debug",
	}
	for _, p := range []Parameter{paramForecastSource, paramQueueURL, paramAdminKeyHash} {
		value, err := r.SSM.Get(ctx, r.SSM.Path(p.Key), p.Secure)
		if err != nil {
			r.Logger.Warn("parameter not exported", "key", p.Key, "error", err)
			continue
		}
		env[p.EnvVar] = value
	}

	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restricting permissions on %s: %w", path, err)
	}
	return nil
}

// GenerateSecureToken returns 32 random bytes, hex-encoded.
func GenerateSecureToken() (string, error) {
	buf := make([]byte, tokenByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating secure token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
