package events

// Topics emitted by the order engine. NATS subjects are "resto.<topic>".
const (
	TopicOrderCreated       = "order.created"
	TopicOrderItemsChanged  = "order.items_changed"
	TopicOrderStatusChanged = "order.status_changed"
	TopicOrderCompleted     = "order.completed"
	TopicPaymentCaptured    = "payment.captured"
	TopicInvoiceIssued      = "invoice.issued"
)

var knownTopics = map[string]struct{}{
	TopicOrderCreated:       {},
	TopicOrderItemsChanged:  {},
	TopicOrderStatusChanged: {},
	TopicOrderCompleted:     {},
	TopicPaymentCaptured:    {},
	TopicInvoiceIssued:      {},
}

// Known reports whether topic is one the engine emits.
func Known(topic string) bool {
	_, ok := knownTopics[topic]
	return ok
}
