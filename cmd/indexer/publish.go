package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/buyingguide/internal/db/redis"
	"github.com/kailas-cloud/buyingguide/internal/repository/buildinfo"
	"github.com/kailas-cloud/buyingguide/internal/usecase/builder"
)

// redisOptions are the connection flags shared by build --publish and publish.
type redisOptions struct {
	addr     string
	username string
	password string
	timeout  time.Duration
}

func (o *redisOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.addr, "redis-addr", envOr("REDIS_ADDR", "localhost:6379"), "Redis address")
	f.StringVar(&o.username, "redis-username", envOr("REDIS_USERNAME", ""), "Redis username")
	f.StringVar(&o.password, "redis-password", envOr("REDIS_PASSWORD", ""), "Redis password")
	f.DurationVar(&o.timeout, "redis-timeout", 10*time.Second, "wait this long for Redis to become ready")
}

func (o *redisOptions) open(ctx context.Context) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    []string{o.addr},
		Username: o.username,
		Password: o.password,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err := store.WaitForReady(ctx, o.timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("redis not ready: %w", err)
	}
	return store, nil
}

func newPublishCmd(a *app) *cobra.Command {
	o := &redisOptions{}
	cmd := &cobra.Command{
		Use:   "publish <index>",
		Short: "Verify an index and record it as the build API servers load",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := publish(cmd.Context(), args[0], store, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s (%d products) from %s\n",
				rec.BuildID, rec.Products, rec.IndexPath)
			return nil
		},
	}
	o.bind(cmd)
	return cmd
}

func publish(ctx context.Context, path string, store *dbRedis.Store, logger *zap.Logger) (buildinfo.Record, error) {
	rec, err := builder.Publish(ctx, path, buildinfo.New(store), logger)
	if err != nil {
		return buildinfo.Record{}, fmt.Errorf("publish: %w", err)
	}
	return rec, nil
}

func newUnpublishCmd() *cobra.Command {
	o := &redisOptions{}
	cmd := &cobra.Command{
		Use:   "unpublish",
		Short: "Remove the published build record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := buildinfo.New(store).Unpublish(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "unpublished")
			return nil
		},
	}
	o.bind(cmd)
	return cmd
}
