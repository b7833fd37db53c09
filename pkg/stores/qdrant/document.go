package qdrant

import (
	"github.com/google/uuid"
)

/*
Document is one Qdrant point. ID is the caller's chunk id; PointID derives the
UUID Qdrant actually stores, since Qdrant only accepts UUIDs or integers.
*/
type Document struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]any
}

func NewDocument(id, content string, vector []float32, metadata map[string]any) *Document {
	payload := make(map[string]any, len(metadata)+2)

	for k, v := range metadata {
		payload[k] = v
	}

	payload["id"] = id
	payload["content"] = content

	return &Document{
		ID:       id,
		Content:  content,
		Vector:   vector,
		Metadata: payload,
	}
}

// PointID maps a chunk id onto a stable name-based UUID.
func PointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}
