// Package main implements the bootstrap CLI that seeds the sunpump SSM
// parameters before the first deployment.
//
// Usage:
//
//	go run ./cmd/ops/bootstrap --env=dev
//	go run ./cmd/ops/bootstrap --env=dev --forecast-source=s3://bucket/72h_forecast_results.csv
//	go run ./cmd/ops/bootstrap --env=prod --profile=sunpump-prod --export-env
//
// The tool verifies the AWS identity through STS, asks for confirmation
// when targeting prod, writes forecast/source, advisory/queue_url and a
// generated admin key with its bcrypt hash, then prints the _SSM_PARAM
// variables the services need.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

var validEnvironments = map[string]bool{
	"dev":     true,
	"staging": true,
	"prod":    true,
}

// Session is the verified AWS session the bootstrap runs against.
type Session struct {
	Environment string
	Profile     string
	Region      string
	AccountID   string
	CallerARN   string
	AWSConfig   aws.Config
}

func main() {
	envFlag := flag.String("env", "", "Target environment (dev/staging/prod) [required]")
	profileFlag := flag.String("profile", "", "AWS CLI profile (default: default credential chain)")
	regionFlag := flag.String("region", "ap-south-1", "AWS region")
	endpointFlag := flag.String("endpoint", "", "AWS endpoint override (LocalStack)")
	sourceFlag := flag.String("forecast-source", "", "Forecast source URI; prompted for when empty")
	queueFlag := flag.String("queue-url", "", "Advisory SQS queue URL; prompted for when empty")
	overwriteFlag := flag.Bool("overwrite", false, "Replace parameters that already exist")
	exportEnvFlag := flag.Bool("export-env", false, "Write the parameters to a .env file for local runs")
	exportEnvPath := flag.String("export-env-path", ".env", "Path for --export-env")
	flag.Parse()

	if err := validateEnv(*envFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sess, err := initializeSession(ctx, *envFlag, *profileFlag, *regionFlag, *endpointFlag, logger)
	if err != nil {
		logger.Error("initialization failed", "error", err)
		os.Exit(1)
	}

	if sess.Environment == "prod" && !confirmProduction(sess) {
		fmt.Fprintln(os.Stderr, "Aborted. No changes were made.")
		return
	}
	printBanner(sess)

	client := ssm.NewFromConfig(sess.AWSConfig, func(o *ssm.Options) {
		if *endpointFlag != "" {
			o.BaseEndpoint = aws.String(*endpointFlag)
		}
	})
	runner := NewRunner(NewSSMManager(client, sess.Environment, logger), os.Stdin, os.Stderr, *overwriteFlag, logger)

	values := map[string]string{
		paramForecastSource.Key: *sourceFlag,
		paramQueueURL.Key:       *queueFlag,
	}
	if err := runner.Run(ctx, values); err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	logger.Info("bootstrap completed", "env", sess.Environment, "account", sess.AccountID)

	if *exportEnvFlag {
		if err := runner.ExportEnv(ctx, *exportEnvPath); err != nil {
			logger.Error("failed to export .env file", "error", err)
			os.Exit(1)
		}
		logger.Info(".env file exported", "path", *exportEnvPath)
	}
}

func validateEnv(env string) error {
	if env == "" {
		return fmt.Errorf("--env is required")
	}
	if !validEnvironments[env] {
		return fmt.Errorf("invalid environment %q (must be dev, staging, or prod)", env)
	}
	return nil
}

// initializeSession loads AWS config and confirms the caller identity.
func initializeSession(ctx context.Context, env, profile, region, endpoint string, logger *slog.Logger) (*Session, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	stsClient := sts.NewFromConfig(cfg, func(o *sts.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	idCtx, idCancel := context.WithTimeout(ctx, 10*time.Second)
	defer idCancel()

	identity, err := stsClient.GetCallerIdentity(idCtx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("verifying AWS identity (profile %q, region %q): %w", profile, region, err)
	}

	sess := &Session{
		Environment: env,
		Profile:     profile,
		Region:      region,
		AccountID:   aws.ToString(identity.Account),
		CallerARN:   aws.ToString(identity.Arn),
		AWSConfig:   cfg,
	}
	logger.Info("AWS identity verified", "account_id", sess.AccountID, "arn", sess.CallerARN, "region", region)
	return sess, nil
}

func confirmProduction(sess *Session) bool {
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "  WARNING: you are targeting the PRODUCTION environment")
	fmt.Fprintf(os.Stderr, "  Account: %s\n  Region:  %s\n  ARN:     %s\n\n", sess.AccountID, sess.Region, sess.CallerARN)
	fmt.Fprint(os.Stderr, "Type 'yes' to continue: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(scanner.Text()), "yes")
}

func printBanner(sess *Session) {
	fmt.Fprintln(os.Stderr, "------------------------------------------------------------")
	fmt.Fprintln(os.Stderr, "  SunPump Bootstrap")
	fmt.Fprintln(os.Stderr, "------------------------------------------------------------")
	fmt.Fprintf(os.Stderr, "  Environment:  %s\n", sess.Environment)
	fmt.Fprintf(os.Stderr, "  AWS Account:  %s\n", sess.AccountID)
	fmt.Fprintf(os.Stderr, "  AWS Region:   %s\n", sess.Region)
	if sess.Profile != "" {
		fmt.Fprintf(os.Stderr, "  Profile:      %s\n", sess.Profile)
	}
	fmt.Fprintf(os.Stderr, "  SSM Prefix:   /%s/sunpump/\n", sess.Environment)
	fmt.Fprintln(os.Stderr, "------------------------------------------------------------")
}
