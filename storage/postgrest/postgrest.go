// Package postgrest provides a premium.UserStore backed by a PostgREST API,
// such as the REST endpoint of a Supabase project.
package postgrest

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/supabase-community/postgrest-go"

	"github.com/mihaimyh/premiumgate/pkg/premium"
)

const (
	defaultTable    = "users"
	defaultSchema   = "public"
	defaultRESTPath = "/rest/v1"
	emailColumn     = "email"
	returnMinimal   = "minimal"
	countExact      = "exact"
)

// Config holds PostgREST storage configuration
type Config struct {
	// URL is the project base URL (e.g. https://xyz.supabase.co). Required.
	URL string

	// ServiceKey is the service-role key sent as apikey and bearer token. Required.
	ServiceKey string

	// RESTPath is appended to URL. Default: "/rest/v1"
	RESTPath string

	// Table holds the user records. Default: "users"
	Table string

	// Schema is the exposed schema. Default: "public"
	Schema string
}

// Storage implements premium.UserStore using PostgREST
type Storage struct {
	client *postgrest.Client
	table  string
}

var _ premium.UserStore = (*Storage)(nil)

// New creates a new PostgREST storage adapter
func New(config Config) (*Storage, error) {
	key := strings.TrimSpace(config.ServiceKey)
	if key == "" {
		return nil, fmt.Errorf("service key is required")
	}
	base := strings.TrimRight(strings.TrimSpace(config.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	// Set defaults
	if config.RESTPath == "" {
		config.RESTPath = defaultRESTPath
	}
	if config.Table == "" {
		config.Table = defaultTable
	}
	if config.Schema == "" {
		config.Schema = defaultSchema
	}

	client := postgrest.NewClient(base+config.RESTPath, config.Schema, map[string]string{
		"apikey":        key,
		"Authorization": "Bearer " + key,
	})

	return &Storage{
		client: client,
		table:  config.Table,
	}, nil
}

// UpgradeUser implements premium.UserStore.
// It issues PATCH /<table>?email=eq.<email> and reads the exact match count
// from the Content-Range header.
//
// The PostgREST client takes no context, so the request runs in its own
// goroutine and UpgradeUser returns ctx.Err() once ctx is done. The PATCH may
// still reach the server after that.
func (s *Storage) UpgradeUser(ctx context.Context, email string, upgrade premium.UserUpgrade) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	type result struct {
		count int64
		err   error
	}
	done := make(chan result, 1)
	go func() {
		_, count, err := s.client.From(s.table).
			Update(upgrade, returnMinimal, countExact).
			Eq(emailColumn, email).
			Execute()
		done <- result{count: count, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %w", premium.ErrStoreUnavailable, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return 0, fmt.Errorf("%w: %v", premium.ErrStoreUnavailable, res.err)
		}
		return res.count, nil
	}
}
