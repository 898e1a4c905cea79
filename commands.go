package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"auto_digest_publisher/digest"
	"auto_digest_publisher/pipeline"
	"auto_digest_publisher/server"
)

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(v)
}

// failure is the JSON printed when generate fails. issueID names an issue that
// was already stored, so it can be resent or cleaned up.
func failure(err error, issueID string) map[string]any {
	out := map[string]any{"success": false, "error": err.Error()}
	if issueID != "" {
		out["issueId"] = issueID
	}
	return out
}

func generateCmd() *cobra.Command {
	var send bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run one generation cycle and store the issue",
		RunE: func(cmd *cobra.Command, args []string) error {
			fail := func(err error, issueID string) error {
				printJSON(failure(err, issueID))
				return errReported
			}
			a, err := openApp(cmd)
			if err != nil {
				return fail(err, "")
			}
			defer a.Close()

			orch, err := a.orchestrator()
			if err != nil {
				return fail(err, "")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.logger.Printf("[cli] generating issue")
			res, err := orch.Run(ctx)
			if err != nil {
				if stage := pipeline.StageOf(err); stage != "" {
					a.logger.Printf("[cli] cycle failed at %s", stage)
				}
				return fail(err, pipeline.IssueIDOf(err))
			}
			a.logger.Printf("[cli] issue %d stored slug=%s", res.Sequence, res.Slug)

			out := map[string]any{"success": true, "issueId": res.IssueID, "sequence": res.Sequence, "slug": res.Slug}
			if send {
				rep, err := a.deliver(ctx, res.IssueID, res.Digest, "")
				if err != nil {
					return fail(err, res.IssueID)
				}
				out["sentCount"] = rep.Sent
			}
			printJSON(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&send, "send", false, "email the issue to subscribers after it is stored")
	return cmd
}

func sendCmd() *cobra.Command {
	var issueID, slug string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Email a stored issue to all active subscribers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (issueID == "") == (slug == "") {
				return errors.New("exactly one of --issue or --slug is required")
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			var stored digest.Stored
			if issueID != "" {
				stored, err = a.store.Issue(ctx, issueID)
			} else {
				stored, err = a.store.IssueBySlug(ctx, slug)
			}
			if err != nil {
				return err
			}

			a.logger.Printf("[cli] sending issue=%s slug=%s", stored.Issue.ID, stored.Issue.Slug)
			rep, err := a.deliver(ctx, stored.Issue.ID, stored.Digest(), stored.Issue.ArchiveURL)
			if err != nil {
				return err
			}
			for _, f := range rep.Failures {
				fmt.Fprintf(os.Stderr, "failed: %s: %v\n", f.Email, f.Err)
			}
			printJSON(map[string]any{"success": true, "sentCount": rep.Sent})
			return nil
		},
	}
	cmd.Flags().StringVar(&issueID, "issue", "", "issue id")
	cmd.Flags().StringVar(&slug, "slug", "", "issue slug")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			orch, err := a.orchestrator()
			if err != nil {
				return err
			}
			srv, err := server.New(orch, a.store, server.Options{SiteURL: a.cfg.SiteURL, Logger: a.logger})
			if err != nil {
				return err
			}
			listen := a.cfg.ServerAddr
			if addr != "" {
				listen = addr
			}

			httpSrv := &http.Server{Addr: listen, Handler: srv.Routes(), ReadHeaderTimeout: 10 * time.Second}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = httpSrv.Shutdown(shutdownCtx)
			}()

			a.logger.Printf("Starting web server on %s", listen)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "http listen address (overrides config server_addr)")
	return cmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the model endpoint, the database and the email API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			checks := map[string]func(context.Context) error{
				"llm": func(ctx context.Context) error {
					agent, err := a.agent()
					if err != nil {
						return err
					}
					return agent.Ping(ctx)
				},
				"database": a.store.Ping,
				"email": func(ctx context.Context) error {
					client, err := a.resend()
					if err != nil {
						return err
					}
					return client.Ping(ctx)
				},
			}

			var (
				mu     sync.Mutex
				failed []string
				g      errgroup.Group
			)
			for name, check := range checks {
				name, check := name, check
				g.Go(func() error {
					if err := check(ctx); err != nil {
						a.logger.Printf("[WARN] [health] %s: FAILED %v", name, err)
						mu.Lock()
						failed = append(failed, name)
						mu.Unlock()
						return nil
					}
					a.logger.Printf("[INFO] [health] %s: OK", name)
					return nil
				})
			}
			_ = g.Wait()

			if len(failed) > 0 {
				return fmt.Errorf("health checks failed: %v", failed)
			}
			fmt.Println("All health checks passed")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load topics, programs and subscribers from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.store.Seed(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Printf("topics=%d programs=%d subscribers=%d skipped=%d\n", rep.Topics, rep.Programs, rep.Subscribers, rep.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func statusCmd() *cobra.Command {
	var issueID, to string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Move an issue to draft, scheduled or published",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.store.SetStatus(cmd.Context(), issueID, to); err != nil {
				return err
			}
			a.logger.Printf("[cli] issue=%s status=%s", issueID, to)
			return nil
		},
	}
	cmd.Flags().StringVar(&issueID, "issue", "", "issue id")
	cmd.Flags().StringVar(&to, "to", digest.StatusPublished, "target status")
	_ = cmd.MarkFlagRequired("issue")
	return cmd
}

func subscribersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Manage the mailing list",
	}

	var name string
	add := &cobra.Command{
		Use:   "add EMAIL",
		Short: "Subscribe an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			id, err := a.store.AddSubscriber(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "subscriber name")

	remove := &cobra.Command{
		Use:   "remove EMAIL",
		Short: "Unsubscribe an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.store.Unsubscribe(cmd.Context(), args[0])
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print active subscribers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			subs, err := a.store.ActiveSubscribers(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range subs {
				fmt.Printf("%s\t%s\n", s.Email, s.Name)
			}
			return nil
		},
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}
