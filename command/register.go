package command

import (
	"github.com/goliatone/go-carousel/query"
	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-errors"
)

// Service is what the command and query handlers need.
type Service interface {
	Exporter
	query.Reader
}

// RegisterHandlers wires carousel commands and queries to go-command. Extra
// handlers (for example a BatchCommand) are added to the registry so their
// CLI and cron options are picked up.
func RegisterHandlers(reg *gcmd.Registry, svc Service, extra ...any) ([]dispatcher.Subscription, error) {
	if svc == nil {
		return nil, errors.New("carousel service is required", errors.CategoryValidation).
			WithTextCode("SERVICE_REQUIRED")
	}

	pdf := NewPrintPDFHandler(svc)
	jpgs := NewExportJPGsHandler(svc)

	status := query.NewExportStatusHandler(svc)
	record := query.NewExportRecordHandler(svc)
	history := query.NewExportHistoryHandler(svc)

	subscriptions := []dispatcher.Subscription{
		dispatcher.SubscribeCommand(pdf),
		dispatcher.SubscribeCommand(jpgs),
		dispatcher.SubscribeQuery(status),
		dispatcher.SubscribeQuery(record),
		dispatcher.SubscribeQuery(history),
	}

	if reg != nil {
		handlers := append([]any{pdf, jpgs, status, record, history}, extra...)
		for _, handler := range handlers {
			if handler == nil {
				continue
			}
			if err := reg.RegisterCommand(handler); err != nil {
				return subscriptions, err
			}
		}
	}

	return subscriptions, nil
}
