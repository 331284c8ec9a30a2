package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskQuotePDFExport = "quotes.export_pdf"

const TaskQuoteExpirySweep = "quotes.expire_overdue"

type QuotePDFExportPayload struct {
	QuoteID string `json:"quoteId"`
}

func NewQuotePDFExportTask(payload QuotePDFExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuotePDFExport, data), nil
}

func ParseQuotePDFExportPayload(task *asynq.Task) (QuotePDFExportPayload, error) {
	var payload QuotePDFExportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return QuotePDFExportPayload{}, err
	}
	return payload, nil
}

// NewQuoteExpirySweepTask carries no payload; the sweep reads the clock when it runs.
func NewQuoteExpirySweepTask() *asynq.Task {
	return asynq.NewTask(TaskQuoteExpirySweep, nil)
}
