// service/change_audit.go
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/modelgate/audit"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/util"
)

// SubscribeChangeAudit writes an audit record for every policy and grant
// change announced on bus. The returned func removes the subscriptions.
func SubscribeChangeAudit(bus *util.EventBus, auditService audit.Service) func() {
	policyID := bus.Subscribe(util.EventPolicyChanged, func(ctx context.Context, e util.Event) error {
		change, ok := e.Payload.(util.PolicyChange)
		if !ok {
			return fmt.Errorf("unexpected %s payload %T", e.Type, e.Payload)
		}
		return logChange(ctx, auditService, audit.AuditLog{
			Action:        audit.ActionPolicyChange,
			PolicyID:      change.Policy.ID,
			AccessGranted: true,
			Reason:        change.ChangeType,
		}, change.Policy)
	})

	grantID := bus.Subscribe(util.EventGrantChanged, func(ctx context.Context, e util.Event) error {
		change, ok := e.Payload.(util.GrantChange)
		if !ok {
			return fmt.Errorf("unexpected %s payload %T", e.Type, e.Payload)
		}
		return logChange(ctx, auditService, audit.AuditLog{
			Action:        audit.ActionGrantChange,
			UserID:        change.Grant.UserID,
			ModelID:       change.Grant.ModelID,
			PolicyID:      change.Grant.PolicyID,
			AccessGranted: change.Grant.Granted,
			Reason:        change.ChangeType,
		}, change.Grant)
	})

	return func() {
		bus.Unsubscribe(util.EventPolicyChanged, policyID)
		bus.Unsubscribe(util.EventGrantChanged, grantID)
	}
}

func logChange(ctx context.Context, auditService audit.Service, entry audit.AuditLog, subject interface{}) error {
	details, err := json.Marshal(subject)
	if err != nil {
		return fmt.Errorf("failed to marshal change details: %w", err)
	}
	entry.ChangeDetails = details
	if err := auditService.LogAccess(ctx, entry); err != nil {
		logger.Error("Failed to audit change",
			zap.String("action", entry.Action),
			zap.String("reason", entry.Reason),
			zap.Error(err))
		return err
	}
	return nil
}
