package wa

import (
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// JIDForUser maps an app user id to the WhatsApp account it chats from. Ids
// are phone numbers in international format, optionally already written as
// a full JID.
func JIDForUser(userID string) (types.JID, error) {
	if strings.Contains(userID, "@") {
		jid, err := types.ParseJID(userID)
		if err != nil {
			return types.JID{}, fmt.Errorf("parse JID: %w", err)
		}
		return jid.ToNonAD(), nil
	}
	phone := strings.TrimPrefix(userID, "+")
	if phone == "" {
		return types.JID{}, fmt.Errorf("empty user id")
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return types.JID{}, fmt.Errorf("user id %q is not a phone number", userID)
		}
	}
	return types.NewJID(phone, types.DefaultUserServer), nil
}

// UserForJID is the inverse of JIDForUser for phone-number JIDs.
func UserForJID(jid types.JID) string {
	return jid.ToNonAD().User
}
