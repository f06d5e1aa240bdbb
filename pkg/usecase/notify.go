package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/service/slack"
	"github.com/secmon-lab/riskdesk/pkg/utils/async"
	"github.com/secmon-lab/riskdesk/pkg/utils/logging"
	goslack "github.com/slack-go/slack"
)

// notifier posts intake outcomes to the compliance Slack channel
type notifier struct {
	slackService slack.Service
	channelID    string
	users        interfaces.UserRepository
	dispatcher   *async.Dispatcher
}

func (n *notifier) enabled() bool {
	return n != nil && n.slackService != nil && n.channelID != ""
}

// notifyIntake dispatches the notification in the background. Failures are
// logged and counted; they never affect the intake result.
func (n *notifier) notifyIntake(ctx context.Context, risk *model.Risk, assignment *model.AssignmentResult) {
	if !n.enabled() || assignment == nil {
		return
	}

	risk = risk.Copy()
	result := *assignment
	n.dispatcher.Dispatch(ctx, func(ctx context.Context) error {
		if err := n.post(ctx, risk, &result); err != nil {
			notificationFailures.Inc()
			return err
		}
		return nil
	})
}

func (n *notifier) post(ctx context.Context, risk *model.Risk, assignment *model.AssignmentResult) error {
	var (
		blocks []goslack.Block
		text   string
	)

	switch {
	case assignment.Success:
		mention := n.ownerMention(ctx, assignment)
		blocks = buildAssignedBlocks(risk, mention)
		text = fmt.Sprintf("Risk reported in %s assigned to %s", risk.Department, mention)
	case assignment.IsPending():
		blocks = buildPendingBlocks(risk)
		text = fmt.Sprintf("Risk reported in %s is pending owner designation", risk.Department)
	default:
		return nil
	}

	if _, err := n.slackService.PostMessage(ctx, n.channelID, blocks, text); err != nil {
		return goerr.Wrap(err, "failed to post risk notification", goerr.V(RiskIDKey, risk.ID))
	}
	return nil
}

// ownerMention resolves the owner's Slack user, falling back to the plain ID
func (n *notifier) ownerMention(ctx context.Context, assignment *model.AssignmentResult) string {
	fallback := assignment.OwnerID.String()

	owner, err := n.users.Get(ctx, assignment.OwnerID)
	if err != nil {
		logging.From(ctx).Warn("failed to load risk owner for notification", "owner_id", assignment.OwnerID, "error", err)
		return fallback
	}
	if owner.SlackUserID != "" {
		return fmt.Sprintf("<@%s>", owner.SlackUserID)
	}
	if owner.Email != "" {
		u, err := n.slackService.LookupUserByEmail(ctx, owner.Email)
		if err == nil {
			return fmt.Sprintf("<@%s>", u.ID)
		}
		logging.From(ctx).Warn("failed to resolve Slack user by email", "owner_id", owner.ID, "error", err)
	}
	if owner.Name != "" {
		return owner.Name
	}
	return fallback
}

func buildAssignedBlocks(risk *model.Risk, mention string) []goslack.Block {
	return []goslack.Block{
		goslack.NewHeaderBlock(
			goslack.NewTextBlockObject(goslack.PlainTextType, "New risk assigned", true, false),
		),
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, risk.Description, false, false),
			nil, nil,
		),
		goslack.NewContextBlock("",
			goslack.NewTextBlockObject(goslack.MarkdownType, riskContext(risk, "Owner: "+mention), false, false),
		),
	}
}

func buildPendingBlocks(risk *model.Risk) []goslack.Block {
	return []goslack.Block{
		goslack.NewHeaderBlock(
			goslack.NewTextBlockObject(goslack.PlainTextType, ":warning: Risk pending owner designation", true, false),
		),
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, risk.Description, false, false),
			nil, nil,
		),
		goslack.NewContextBlock("",
			goslack.NewTextBlockObject(goslack.MarkdownType, riskContext(risk, "No risk owner in department"), false, false),
		),
	}
}

func riskContext(risk *model.Risk, extra string) string {
	categories := make([]string, len(risk.Categories))
	for i, c := range risk.Categories {
		categories[i] = c.String()
	}
	parts := []string{
		fmt.Sprintf("Department: %s", risk.Department),
		fmt.Sprintf("Categories: %s", strings.Join(categories, ", ")),
		extra,
		fmt.Sprintf("ID: `%s`", risk.ID),
	}
	return strings.Join(parts, "  |  ")
}
