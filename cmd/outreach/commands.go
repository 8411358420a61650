package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/config"
	"github.com/kursadbilgin/outreach-engine/internal/crm"
	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"github.com/kursadbilgin/outreach-engine/internal/infra/storage"
	"github.com/kursadbilgin/outreach-engine/internal/learning"
	"github.com/kursadbilgin/outreach-engine/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultSendLimit = 50

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type runResult struct {
	Client   string `json:"client"`
	RunID    string `json:"run_id"`
	Status   string `json:"status"`
	Contacts int    `json:"contacts"`
	Targeted int    `json:"targeted"`
	Drafted  int    `json:"drafted"`
	Error    string `json:"error,omitempty"`
}

func runCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "pull, score, plan, draft and report for every client",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			clients, err := a.selectClients(opts.client)
			if err != nil {
				return err
			}

			results := a.runner(limit).Run(cmd.Context(), clients)

			out := make([]runResult, 0, len(results))
			failed := 0
			for _, r := range results {
				row := runResult{
					Client:   r.Client,
					RunID:    r.RunID,
					Status:   r.Status.String(),
					Contacts: r.Contacts,
					Targeted: r.Targeted,
					Drafted:  r.Drafted,
				}
				if r.Err != nil {
					row.Error = r.Err.Error()
					failed++
				}
				out = append(out, row)
			}
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d clients failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum contacts pulled per client (0 = source default)")
	return cmd
}

func planCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "build and store today's outreach plan for one client",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()
			return a.withTenant(ctx, opts.client, func(client config.Client, tenant *storage.Tenant) error {
				contacts, err := a.pullContacts(ctx, client, 0)
				if err != nil {
					return err
				}

				in := service.PlanInput{
					ClientSlug: client.Slug,
					Contacts:   contacts,
					DailyCap:   client.DailyCap.OrElse(a.cfg.DefaultDailyCap),
					Variant:    client.VariantSet(a.cfg.DefaultVariantSet),
					Overrides:  client.Policy(),
				}
				if cmd.Flags().Changed("limit") {
					in.Limit = domain.Some(limit)
				}

				plan, err := service.NewPlanningService(tenant.Repos.Plans, a.logger).Plan(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), plan)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "extra cap on the number of targets")
	return cmd
}

func draftCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "draft",
		Short: "draft messages for the targets of the latest plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()
			return a.withTenant(ctx, opts.client, func(client config.Client, tenant *storage.Tenant) error {
				contacts, err := a.pullContacts(ctx, client, 0)
				if err != nil {
					return err
				}
				variantSet := client.VariantSet(a.cfg.DefaultVariantSet)
				variants, err := a.variants(variantSet)
				if err != nil {
					return err
				}
				conn, err := a.connector(client)
				if err != nil {
					return err
				}

				svc := service.NewDraftingService(tenant.Repos.Plans, tenant.Repos.Messages,
					learning.NewSelector(tenant.Repos.Stats, a.logger), conn, a.logger)
				svc.SetMetrics(a.metrics)
				drafted, err := svc.Draft(ctx, service.DraftInput{
					ClientSlug: client.Slug,
					Contacts:   contacts,
					Variants:   variants,
					VariantSet: variantSet,
					Epsilon:    client.Epsilon(a.cfg.DefaultEpsilon),
					BrandVoice: client.BrandVoice(),
					Offer:      client.Offer(),
				})
				if err != nil {
					return err
				}

				ids := make([]string, 0, len(drafted))
				for _, m := range drafted {
					ids = append(ids, m.ID)
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"drafted": ids})
			})
		},
	}
}

func approveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <message-id>...",
		Short: "approve drafts within the client's daily approval cap",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()
			return a.withTenant(ctx, opts.client, func(client config.Client, tenant *storage.Tenant) error {
				svc := service.NewOutboxService(tenant.Repos.Messages, tenant.Repos.Attempts, nil, nil, a.limiter, a.logger)
				res, err := svc.Approve(ctx, args, client.ApprovalCap)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"approved": nonNil(res.Approved),
					"skipped":  nonNil(res.Skipped),
				})
			})
		},
	}
}

func sendCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "send",
		Short: "send approved and requeued messages through the client's connector",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()
			return a.withTenant(ctx, opts.client, func(client config.Client, tenant *storage.Tenant) error {
				conn, err := a.connector(client)
				if err != nil {
					return err
				}

				svc := service.NewOutboxService(tenant.Repos.Messages, tenant.Repos.Attempts,
					a.eventService(tenant), conn, a.limiter, a.logger)
				svc.SetMetrics(a.metrics)
				res, err := svc.SendApproved(ctx, client.Slug, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]int{
					"sent":     res.Sent,
					"failed":   res.Failed,
					"requeued": res.Requeued,
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", defaultSendLimit, "maximum messages sent in this pass")
	return cmd
}

func eventCommand(opts *rootOptions) *cobra.Command {
	var (
		kind      string
		messageID string
		contactID string
		at        string
	)

	cmd := &cobra.Command{
		Use:   "event",
		Short: "log an engagement event and update the variant counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()

			parsedKind, err := domain.ParseEventKindFromString(kind)
			if err != nil {
				return err
			}
			var ts time.Time
			if strings.TrimSpace(at) != "" {
				ts, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("%w: --at must be RFC3339", domain.ErrValidation)
				}
			}

			return a.withTenant(ctx, opts.client, func(client config.Client, tenant *storage.Tenant) error {
				event := &domain.Event{
					ClientSlug: client.Slug,
					Kind:       parsedKind,
					MessageID:  strings.TrimSpace(messageID),
					ContactID:  strings.TrimSpace(contactID),
					TS:         ts,
				}
				if err := a.eventService(tenant).Log(ctx, event); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{"event_id": event.ID})
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "opened|replied|bounced|opted_out|rate_limited|sent|meeting")
	cmd.Flags().StringVar(&messageID, "message-id", "", "message the event refers to")
	cmd.Flags().StringVar(&contactID, "contact-id", "", "contact the event refers to")
	cmd.Flags().StringVar(&at, "at", "", "event time (RFC3339, default now)")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func syncRepliesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-replies",
		Short: "store replies received since the last sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()
			return a.withTenant(ctx, opts.client, func(client config.Client, tenant *storage.Tenant) error {
				conn, err := a.connector(client)
				if err != nil {
					return err
				}
				n, err := a.eventService(tenant).SyncReplies(ctx, client.Slug, conn)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]int{"replies": n})
			})
		},
	}
}

type ownerRow struct {
	crm.OwnerStat
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func statsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "summarize contact pool quality and owner balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()

			if strings.TrimSpace(opts.client) == "" {
				return fmt.Errorf("%w: --client is required", domain.ErrValidation)
			}
			client, err := config.FindClient(a.clients, opts.client)
			if err != nil {
				return err
			}
			source, err := a.source(client)
			if err != nil {
				return err
			}
			contacts, err := source.Contacts(ctx, 0)
			if err != nil {
				return err
			}
			contacts = crm.Score(contacts)

			owners := make(map[string]crm.Owner)
			if hs, ok := source.(*crm.HubSpot); ok {
				list, err := hs.Owners(ctx)
				if err != nil {
					a.logger.Warn("failed to load hubspot owners", zap.String("client", client.Slug), zap.Error(err))
				}
				for _, o := range list {
					owners[o.ID] = o
				}
			}

			rollup := crm.OwnerRollup(contacts)
			rows := make([]ownerRow, 0, len(rollup))
			for _, st := range rollup {
				row := ownerRow{OwnerStat: st}
				if o, ok := owners[st.OwnerID]; ok {
					row.Name = strings.TrimSpace(o.FirstName + " " + o.LastName)
					row.Email = o.Email
				}
				rows = append(rows, row)
			}

			return printJSON(cmd.OutOrStdout(), map[string]any{
				"summary": crm.Summarize(contacts, time.Now()),
				"owners":  rows,
			})
		},
	}
}

func metricsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "compute outreach metrics and write the tenant report",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()
			return a.withTenant(ctx, opts.client, func(client config.Client, tenant *storage.Tenant) error {
				svc := service.NewMetricsService(tenant.Repos.Messages, tenant.Repos.Events, tenant.Repos.Stats, a.logger)
				m, err := svc.WriteReport(ctx, client.Slug, tenant.Dir)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), m)
			})
		},
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
