package ingest

import (
	"errors"

	"hookboard/internal/model"
)

// Rejection classes for payloads that produce no canonical event. The HTTP
// boundary absorbs both with a success response so GitHub does not redeliver.
var (
	ErrUnsupportedEvent = errors.New("unsupported event type")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Normalizer turns a raw webhook body plus its event-type discriminator into
// a canonical event, or one of the rejection errors above.
type Normalizer interface {
	Normalize(eventType string, body []byte) (model.CanonicalEvent, error)
}
