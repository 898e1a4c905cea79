package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"auto_digest_publisher/archive"
	"auto_digest_publisher/config"
	"auto_digest_publisher/digest"
	"auto_digest_publisher/generator"
	"auto_digest_publisher/pipeline"
	"auto_digest_publisher/planner"
	"auto_digest_publisher/publisher"
	"auto_digest_publisher/store"
)

const defaultConfigPath = "config/config.yaml"

var (
	configPath string
	verbose    bool
)

// errReported marks a failure whose output was already written.
var errReported = errors.New("reported")

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	root := &cobra.Command{
		Use:           "digest",
		Short:         "Generate and distribute the weekly Dad's Workout digest",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to config file (json or yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable info logs")

	root.AddCommand(generateCmd(), sendCmd(), serveCmd(), healthCmd(), seedCmd(), statusCmd(), subscribersCmd())

	if err := root.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// app holds what every command shares.
type app struct {
	cfg    config.Config
	logger *log.Logger
	store  *store.Store
}

func openApp(cmd *cobra.Command) (*app, error) {
	path := configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			// 没有默认配置文件时只用环境变量和默认值。
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.Secrets.AWSSecretID != "" {
		api, err := config.NewSecretsClient(cmd.Context(), cfg.Secrets.Region)
		if err != nil {
			return nil, err
		}
		if err := cfg.ResolveSecrets(cmd.Context(), api); err != nil {
			return nil, err
		}
	}
	logger := log.Default()
	st, err := store.Open(cfg.Database.Path, store.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: st}, nil
}

func (a *app) Close() error { return a.store.Close() }

func (a *app) agent() (*generator.Agent, error) {
	llm, err := buildLLM(a.cfg)
	if err != nil {
		return nil, err
	}
	return generator.NewAgent(llm, generator.WithLogger(a.logger))
}

func (a *app) orchestrator() (*pipeline.Orchestrator, error) {
	agent, err := a.agent()
	if err != nil {
		return nil, err
	}
	p, err := planner.New(a.store, a.store, a.store, agent,
		planner.WithCooldown(a.cfg.Planner.CooldownCycles),
		planner.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	return pipeline.New(p, agent, a.store, pipeline.WithLogger(a.logger))
}

func (a *app) resend() (*publisher.ResendClient, error) {
	if err := a.cfg.ValidateEmail(); err != nil {
		return nil, err
	}
	return publisher.NewResendClient(a.cfg.Email.APIKey, a.cfg.Email.BaseURL, nil)
}

func (a *app) publisher() (*publisher.Publisher, error) {
	client, err := a.resend()
	if err != nil {
		return nil, err
	}
	return publisher.New(publisher.Config{
		From:          a.cfg.Email.From,
		SubjectPrefix: a.cfg.Email.SubjectPrefix,
		SiteURL:       a.cfg.SiteURL,
		Pacing:        a.cfg.Email.Pacing,
	}, client, a.store, a.store, publisher.WithLogger(a.logger), publisher.WithVerbose(verbose))
}

// deliver archives the issue when an archive is configured and no copy exists
// yet, then mails it to every active subscriber.
func (a *app) deliver(ctx context.Context, issueID string, d digest.Digest, archiveURL string) (publisher.Report, error) {
	pub, err := a.publisher()
	if err != nil {
		return publisher.Report{}, err
	}
	if archiveURL == "" && a.cfg.Archive.Enabled() {
		arch, err := archive.NewFromConfig(ctx, a.cfg.Archive, a.logger)
		if err != nil {
			return publisher.Report{}, err
		}
		page, err := publisher.RenderDigest(d, a.cfg.SiteURL, "", a.cfg.Email.SubjectPrefix)
		if err != nil {
			return publisher.Report{}, err
		}
		url, err := arch.Upload(ctx, d.Slug, page.HTML)
		if err != nil {
			return publisher.Report{}, err
		}
		if err := a.store.SetArchiveURL(ctx, issueID, url); err != nil {
			return publisher.Report{}, err
		}
		archiveURL = url
	}
	return pub.Distribute(ctx, issueID, d, archiveURL)
}

func buildLLM(cfg config.Config) (generator.LLMClient, error) {
	if cfg.LLM == nil || cfg.LLM.Provider == "" {
		return nil, fmt.Errorf("llm config missing; please set llm.provider/model in config")
	}
	switch cfg.LLM.Provider {
	case "openai":
		return generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
			Provider: cfg.LLM.Provider,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
		})
	case "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url（例如官方/网关地址）。
		if cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
			Provider: cfg.LLM.Provider,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
		})
	case "mock":
		return generator.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}
