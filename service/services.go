// service/services.go
package service

import (
	"github.com/dev-mohitbeniwal/modelgate/audit"
	"github.com/dev-mohitbeniwal/modelgate/dao"
	"github.com/dev-mohitbeniwal/modelgate/registry"
	"github.com/dev-mohitbeniwal/modelgate/util"
)

type Services struct {
	Policy    IPolicyService
	Grant     IGrantService
	Inference IInferenceService
}

func InitializeServices(
	store dao.Store,
	reg *registry.Registry,
	admitter Admitter,
	dispatcher JobDispatcher,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	notificationSvc *util.NotificationService,
) *Services {
	return &Services{
		Policy:    NewPolicyService(store, validationUtil, cacheService, notificationSvc, auditService),
		Grant:     NewGrantService(store, reg, validationUtil, notificationSvc),
		Inference: NewInferenceService(admitter, dispatcher, reg, validationUtil),
	}
}
