// util/notification_service.go

package util

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/model"
)

// Change types carried by policy and grant notifications.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeRevoked = "revoked"
)

type PolicyChange struct {
	ChangeType string
	Policy     model.AccessPolicy
}

type GrantChange struct {
	ChangeType string
	Grant      model.AccessGrant
}

// NotificationService announces administrative changes on the event bus.
type NotificationService struct {
	bus *EventBus
}

func NewNotificationService(bus *EventBus) *NotificationService {
	return &NotificationService{bus: bus}
}

func (n *NotificationService) NotifyPolicyChange(ctx context.Context, changeType string, policy model.AccessPolicy) error {
	switch changeType {
	case ChangeCreated:
		logger.Info("NOTIFICATION: New policy created",
			zap.String("policyID", policy.ID),
			zap.String("policyName", policy.Name))
	case ChangeUpdated:
		logger.Info("NOTIFICATION: Policy updated",
			zap.String("policyID", policy.ID),
			zap.Int("dailyLimit", policy.DailyLimit),
			zap.Int("monthlyLimit", policy.MonthlyLimit))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}
	return n.publish(ctx, EventPolicyChanged, PolicyChange{ChangeType: changeType, Policy: policy})
}

func (n *NotificationService) NotifyGrantChange(ctx context.Context, changeType string, grant model.AccessGrant) error {
	switch changeType {
	case ChangeCreated, ChangeUpdated, ChangeRevoked:
		logger.Info("NOTIFICATION: Grant "+changeType,
			zap.String("userID", grant.UserID),
			zap.String("modelID", grant.ModelID),
			zap.String("policyID", grant.PolicyID),
			zap.Bool("granted", grant.Granted))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}
	return n.publish(ctx, EventGrantChanged, GrantChange{ChangeType: changeType, Grant: grant})
}

// publish tolerates a bus with no listeners; notifications are advisory.
func (n *NotificationService) publish(ctx context.Context, eventType string, payload interface{}) error {
	if n.bus == nil {
		return nil
	}
	err := n.bus.Publish(ctx, eventType, payload)
	if err != nil && !errors.Is(err, ErrNoSubscribers) {
		return err
	}
	return nil
}
