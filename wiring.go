package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	clinicalx "github.com/tanpawarit/clinical-assistant/agent/agents/clinical"
	orchestratorx "github.com/tanpawarit/clinical-assistant/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
	promptx "github.com/tanpawarit/clinical-assistant/agent/prompt"
	statex "github.com/tanpawarit/clinical-assistant/agent/state"
	toolx "github.com/tanpawarit/clinical-assistant/agent/tool"
	gatewayx "github.com/tanpawarit/clinical-assistant/gateway"
	patientx "github.com/tanpawarit/clinical-assistant/patient"
	pgsourcex "github.com/tanpawarit/clinical-assistant/patient/pgsource"
	configx "github.com/tanpawarit/clinical-assistant/pkg/config"
	litellmx "github.com/tanpawarit/clinical-assistant/pkg/litellm"
)

type AgentConfig struct {
	MaxSteps int `split_words:"true" default:"8"`
}

// loadSnapshot reads patients from Postgres when PATIENT_DATABASE_URL is set,
// otherwise it uses the built-in sample patients.
func loadSnapshot(ctx context.Context) (*patientx.Snapshot, error) {
	pgCfg, err := configx.New[pgsourcex.Config]("PATIENT")
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if !pgCfg.Enabled() {
		snap := patientx.SampleSnapshot(now)
		log.Info().Int("patients", snap.Len()).Msg("using sample patient snapshot")
		return snap, nil
	}

	db, err := pgsourcex.Open(*pgCfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	loadCtx, cancel := context.WithTimeout(ctx, pgCfg.Timeout)
	defer cancel()
	return pgsourcex.Load(loadCtx, db, now)
}

func newPatientService(ctx context.Context) (*patientx.Service, error) {
	snap, err := loadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load patient snapshot: %w", err)
	}
	return patientx.NewService(snap)
}

// newToolGateway connects to the remote gateway when MCP_HOST is set and
// falls back to the in-process catalog. The returned url is empty for the
// in-process catalog.
func newToolGateway(ctx context.Context) (contractx.ToolGateway, string, error) {
	mcpCfg, err := configx.New[gatewayx.ClientConfig]("MCP")
	if err != nil {
		return nil, "", err
	}
	if mcpCfg.Enabled() {
		client, err := gatewayx.NewClient(*mcpCfg, nil)
		if err != nil {
			return nil, "", err
		}
		name, err := client.Initialize(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("connect to tool gateway %s: %w", client.URL(), err)
		}
		log.Info().Str("url", client.URL()).Str("server", name).Msg("connected to tool gateway")
		return client, client.URL(), nil
	}

	svc, err := newPatientService(ctx)
	if err != nil {
		return nil, "", err
	}
	return toolx.NewLocalGateway(svc), "", nil
}

func newOrchestrator(ctx context.Context) (*orchestratorx.Orchestrator, error) {
	llmCfg, err := configx.New[litellmx.Config]("LITELLM")
	if err != nil {
		return nil, err
	}
	chatModel, err := llmCfg.New(ctx)
	if err != nil {
		return nil, err
	}

	gateway, gatewayURL, err := newToolGateway(ctx)
	if err != nil {
		return nil, err
	}

	traceCfg, err := configx.New[clinicalx.TraceConfig]("")
	if err != nil {
		return nil, err
	}
	agentCfg, err := configx.New[AgentConfig]("AGENT")
	if err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()
	assistant, err := clinicalx.New(ctx, chatModel, gateway, prompts, clinicalx.Config{
		MaxSteps:   agentCfg.MaxSteps,
		GatewayURL: gatewayURL,
		Trace:      *traceCfg,
	})
	if err != nil {
		return nil, err
	}

	storeCfg, err := configx.New[statex.StoreConfig]("SESSION")
	if err != nil {
		return nil, err
	}
	store := statex.NewMemoryStore(statex.WithTTL(storeCfg.TTL))

	return orchestratorx.New(store, assistant, orchestratorx.Config{
		ProviderID: traceCfg.Resolve("", "").UserID,
		Greeting:   prompts.Greeting,
	})
}
