package queue

const TypeDocumentReprocess = "document:reprocess"

type DocumentReprocessPayload struct {
	DocID string `json:"doc_id"`
}
