// Command slpindexer is the CLI entry point spec.md §8 names as an
// external collaborator: thin wiring around init/clean/reset/deploy/
// subscribe/unsubscribe, plus a serve command that runs the node. It
// mirrors cmd/synnergy/main.go's rootCmd.AddCommand(...) shape.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/synnergy-labs/slpindexer/internal/config"
	"github.com/synnergy-labs/slpindexer/internal/httpapi"
	"github.com/synnergy-labs/slpindexer/internal/logging"
	"github.com/synnergy-labs/slpindexer/internal/node"
	"github.com/synnergy-labs/slpindexer/internal/store"
)

func main() {
	rootCmd := &cobra.Command{Use: "slpindexer"}
	rootCmd.PersistentFlags().String("dir", ".", "config/data directory")
	rootCmd.PersistentFlags().String("network", "mainnet", "named network config")
	rootCmd.AddCommand(initCmd(), cleanCmd(), resetCmd(), deployCmd(), subscribeCmd(), unsubscribeCmd(), serveCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "bootstrap a new network's on-disk config and data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			network, _ := cmd.Flags().GetString("network")
			fmt.Printf("init: would create %s/%s.json and %s/milestones.json\n", dir, network, dir)
			return nil
		},
	}
}

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "remove diagnostic dumps (unvalidated.*, .log) without touching the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			fmt.Printf("clean: would remove %s/unvalidated.* and %s/.log/*\n", dir, dir)
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "drop all derived state and mark a rebuild from genesis",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			network, _ := cmd.Flags().GetString("network")
			n, err := config.Load(dir, network)
			if err != nil {
				return err
			}
			databaseNameVal, _ := n.Ask("database name", nil)
			fmt.Printf("reset: would set rebuild=true on %s/%v.mark\n", dir, databaseNameVal)
			return nil
		},
	}
}

func deployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "register a webhook subscription and write its .wbh/.key files",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			fmt.Printf("deploy: would register a block.applied webhook and write %s/*.wbh, %s/*.key\n", dir, dir)
			return nil
		},
	}
}

func subscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe",
		Short: "subscribe this node to base-layer block.applied events",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("subscribe: would POST /api/webhooks to the configured base-layer peer")
			return nil
		},
	}
}

func unsubscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unsubscribe",
		Short: "remove this node's base-layer webhook subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("unsubscribe: would DELETE the registered webhook on the base-layer peer")
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string
	var selfURL string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the indexer: ingest pipeline, contract engine, gossip and HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			network, _ := cmd.Flags().GetString("network")
			return serve(dir, network, addr, selfURL)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8090", "HTTP listen address")
	cmd.Flags().StringVar(&selfURL, "self-url", "", "this node's externally-reachable URL, for gossip")
	return cmd
}

func serve(dir, network, addr, selfURL string) error {
	net, err := config.Load(dir, network)
	if err != nil {
		return fmt.Errorf("load network config: %w", err)
	}

	logger, closeLog, err := loggerFor(dir, net)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer closeLog()

	peerLimitVal, _ := net.Ask("peer limit", nil)
	peerLimit, _ := peerLimitVal.(float64)

	n, err := node.New(node.Config{
		Network: net, Store: store.NewMemory(), SelfURL: selfURL, DataDir: dir,
		PeerLimit: int(peerLimit), Log: logger,
	})
	if err != nil {
		return fmt.Errorf("build node: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx)
	defer n.Stop()

	h := httpapi.NewHandler(n.Messenger, n.Registry, func(authorization string) (*config.WebhookKey, error) {
		return config.LoadWebhookKey(dir, authorization)
	}, logrus.NewEntry(logger))

	r := mux.NewRouter()
	httpapi.Register(r, h, logrus.NewEntry(logger))

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("http server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

const shutdownTimeout = 5 * time.Second

func loggerFor(dir string, net *config.Network) (*logrus.Logger, func(), error) {
	databaseNameVal, _ := net.Ask("database name", nil)
	databaseName, _ := databaseNameVal.(string)
	if databaseName == "" {
		databaseName = "slpindexer"
	}
	return logging.New(dir, databaseName)
}
