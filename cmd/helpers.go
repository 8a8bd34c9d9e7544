package main

import (
	"context"
	"os"
	"strings"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-crm/internal/leadsync"
	"github.com/sells-group/lead-crm/internal/research"
	"github.com/sells-group/lead-crm/internal/store"
	"github.com/sells-group/lead-crm/pkg/agent"
	anthropicpkg "github.com/sells-group/lead-crm/pkg/anthropic"
	notionpkg "github.com/sells-group/lead-crm/pkg/notion"
	sfpkg "github.com/sells-group/lead-crm/pkg/salesforce"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadcrm.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initService builds the research service. enqueuer may be nil for commands
// that only read or mutate jobs without dispatching them.
func initService(st store.Store, enqueuer research.Enqueuer) (*research.Service, error) {
	agentClient := agent.NewClient(cfg.Agent.Key,
		agent.WithBaseURL(cfg.Agent.BaseURL),
		agent.WithAgent(cfg.Agent.Agent),
	)

	var fallback anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		fallback = anthropicpkg.NewClient(cfg.Anthropic.Key)
	}

	prompt, err := research.LoadPromptTemplate(cfg.Research.PromptTemplate)
	if err != nil {
		return nil, err
	}

	return research.NewService(research.ServiceParams{
		Store:            st,
		Agent:            agentClient,
		Parser:           research.NewParser(fallback, cfg.Anthropic.Model),
		Reconciler:       research.NewReconciler(st, cfg.Research.DefaultSource),
		Prompt:           prompt,
		Enqueuer:         enqueuer,
		DefaultLeadTypes: splitList(cfg.Research.DefaultLeadTypes),
		PollConcurrency:  cfg.Research.PollConcurrency,
	}), nil
}

// initSyncTarget builds the sink for `leads sync`.
func initSyncTarget(name string) (leadsync.Target, error) {
	switch name {
	case "notion":
		if cfg.Notion.Token == "" || cfg.Notion.LeadDB == "" {
			return nil, eris.New("notion token and lead_db are required (LEADCRM_NOTION_TOKEN, LEADCRM_NOTION_LEAD_DB)")
		}
		return leadsync.NewNotionTarget(notionpkg.NewClient(cfg.Notion.Token), cfg.Notion.LeadDB), nil

	case "salesforce":
		if cfg.Salesforce.ClientID == "" {
			return nil, eris.New("salesforce client ID is required (LEADCRM_SALESFORCE_CLIENT_ID)")
		}
		pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
		if err != nil {
			return nil, eris.Wrap(err, "read salesforce JWT private key")
		}
		sf, err := salesforce.Init(salesforce.Creds{
			Domain:         cfg.Salesforce.LoginURL,
			Username:       cfg.Salesforce.Username,
			ConsumerKey:    cfg.Salesforce.ClientID,
			ConsumerRSAPem: string(pemData),
		})
		if err != nil {
			return nil, eris.Wrap(err, "init salesforce")
		}
		return leadsync.NewSalesforceTarget(sfpkg.NewClient(sf)), nil

	default:
		return nil, eris.Errorf("unknown sync target: %s (want notion or salesforce)", name)
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
