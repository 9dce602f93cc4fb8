// Command queryactiveclients lists the accounts visible to an ATWS user.
//
// It looks up the zone that serves the configured user, binds a SOAP client to
// that zone and runs a queryxml query for Account records. Only the first
// batch of results is printed; the service returns at most 500 records per
// query.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/SanteonNL/atws/cmd/queryactiveclients/client"
	"github.com/SanteonNL/atws/cmd/queryactiveclients/config"
	"github.com/SanteonNL/atws/models/atws"
	"github.com/SanteonNL/atws/queryxml"
)

// TestEntity shows how conditions on differently typed fields are rendered.
type TestEntity struct {
	Test1 string
	Test2 int
	Test3 time.Time
}

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) { w.Out = os.Stderr })).With().Timestamp().Logger()

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = log.Level(cfg.LogLevel)

	sample, err := queryxml.For[TestEntity]().
		WhereField(func(e *TestEntity) any { return &e.Test1 }, queryxml.Equals, "abc").
		WhereField(func(e *TestEntity) any { return &e.Test2 }, queryxml.GreaterThan, "def").
		WhereField(func(e *TestEntity) any { return &e.Test3 }, queryxml.LessThanOrEqual, time.Now().UTC().Format(time.RFC3339)).
		Indent(2)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build sample query")
	}
	fmt.Println(sample)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Cannot query the service")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to query accounts")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mode, err := client.ParseSecurityMode(cfg.SecurityMode)
	if err != nil {
		return err
	}

	lookup, err := client.NewClient(client.Config{
		Endpoint:        cfg.ZoneLookupURL,
		UserName:        cfg.UserName,
		Password:        cfg.Password,
		IntegrationCode: cfg.IntegrationCode,
		SecurityMode:    mode,
		Timeout:         cfg.Timeout,
		RetryMax:        cfg.RetryMax,
		MaxMessageSize:  cfg.MaxMessageSize,
	}, log)
	if err != nil {
		return err
	}

	zones := client.NewZoneCache(lookup, cfg.ZoneCacheTTL, log)
	zone, err := zones.ZoneInfo(ctx, cfg.UserName)
	if err != nil {
		return err
	}
	log.Info().Str("url", zone.URL).Str("web_url", zone.WebURL).Msg("Resolved ATWS zone")

	svc, err := lookup.WithEndpoint(zone.URL)
	if err != nil {
		return err
	}

	// every account has a positive id, so this matches all of them
	query, err := queryxml.For[atws.Account]().
		WhereField(func(a *atws.Account) any { return &a.ID }, queryxml.GreaterThan, "0").
		Build()
	if err != nil {
		return err
	}
	log.Debug().Str("query", query).Msg("Running query")

	return printAccounts(ctx, os.Stdout, svc, query, log)
}

func printAccounts(ctx context.Context, w io.Writer, svc client.ServiceClient, query string, log zerolog.Logger) error {
	result, err := svc.Query(ctx, query)
	var codeErr *client.ReturnCodeError
	if errors.As(err, &codeErr) {
		log.Error().Int("return_code", codeErr.ReturnCode).Strs("errors", codeErr.Messages).Msg("Query was rejected")
		return err
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "response ReturnCode =", result.ReturnCode)
	for _, acct := range client.EntitiesOf[*atws.Account](result) {
		fmt.Fprintln(w, "Account Name =", acct.AccountName)
		fmt.Fprintln(w, "Account number =", acct.AccountNumber)
	}
	return nil
}
