package repository

import (
	"encoding/base64"
	"encoding/json"
)

type ProductCursor struct {
	ID string `json:"id"`
}

func EncodeCursor(cursor ProductCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor treats the empty string as the start of the listing.
func DecodeCursor(encoded string) (ProductCursor, error) {
	var cursor ProductCursor
	if encoded == "" {
		return cursor, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return cursor, err
	}

	err = json.Unmarshal(data, &cursor)
	return cursor, err
}
