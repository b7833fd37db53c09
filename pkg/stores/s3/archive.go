package s3

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/theapemachine/hivemind/pkg/session"
)

/*
Archive exports session transcripts to an object store as JSON, one object
per session under "sessions/{id}.json".
*/
type Archive struct {
	conn   *Conn
	bucket string
}

func NewArchive(conn *Conn, bucket string) *Archive {
	return &Archive{conn: conn, bucket: bucket}
}

// Key is the object key a session's transcript is written to.
func Key(sessionID string) string {
	return fmt.Sprintf("sessions/%s.json", sessionID)
}

func (archive *Archive) Save(
	ctx context.Context, sessionID string, messages []session.Message,
) (string, error) {
	body, err := Encode(sessionID, messages)

	if err != nil {
		return "", err
	}

	key := Key(sessionID)

	if err := archive.conn.Put(ctx, archive.bucket, key, body, "application/json"); err != nil {
		return "", fmt.Errorf("s3: archive %s: %w", sessionID, err)
	}

	return key, nil
}

// Encode renders a transcript the way Save stores it.
func Encode(sessionID string, messages []session.Message) ([]byte, error) {
	if messages == nil {
		messages = []session.Message{}
	}

	return json.MarshalIndent(map[string]any{
		"session_id": sessionID,
		"messages":   messages,
	}, "", "  ")
}
