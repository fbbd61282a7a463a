package floatplane

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/unkn0wn-root/opcache/codec"
)

// ErrCreatorNotFound is wrapped in the decode error when a creator lookup
// does not return exactly one creator.
var ErrCreatorNotFound = errors.New("floatplane: creator not found")

// the creator endpoint answers with a list that holds the one match
var creatorDecoder = codec.DecoderFunc[Creator](func(b []byte) (Creator, error) {
	var list []Creator
	if err := json.Unmarshal(b, &list); err != nil {
		return Creator{}, err
	}
	if len(list) != 1 {
		return Creator{}, fmt.Errorf("%w: got %d results", ErrCreatorNotFound, len(list))
	}
	return list[0], nil
})

type creatorListEntry struct {
	Creator                 BaseCreator     `json:"creator"`
	UserNotificationSetting json.RawMessage `json:"userNotificationSetting"`
}

var creatorListDecoder = codec.DecoderFunc[[]BaseCreator](func(b []byte) ([]BaseCreator, error) {
	var entries []creatorListEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, err
	}
	out := make([]BaseCreator, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Creator)
	}
	return out, nil
})
