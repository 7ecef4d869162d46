package sparkpost

import (
	"encoding/json"

	"github.com/samber/lo"
)

// Recipients is the recipient set of a Message. It is always exactly one of
// RecipientList or StoredList; the two encode to incompatible wire shapes.
type Recipients interface {
	json.Marshaler

	// Add returns the set that results from adding r.
	Add(r Recipient) Recipients

	// Len reports the number of locally known recipients.
	Len() int

	isRecipients()
}

// RecipientList is an explicit, ordered list of recipients. Addresses are
// unique within the list.
type RecipientList []Recipient

// Add removes any entry with the same email (exact match) and appends r, so
// the latest entry wins and moves to the end of the list.
func (l RecipientList) Add(r Recipient) Recipients {
	kept := lo.Reject(l, func(existing Recipient, _ int) bool {
		return existing.Address.Email == r.Address.Email
	})
	return append(kept, r)
}

// Len returns the number of recipients in the list.
func (l RecipientList) Len() int {
	return len(l)
}

// Emails returns the recipient addresses in wire order.
func (l RecipientList) Emails() []string {
	return lo.Map(l, func(r Recipient, _ int) string {
		return r.Address.Email
	})
}

// MarshalJSON encodes the list as a JSON array; an empty list is "[]".
func (l RecipientList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Recipient(l))
}

func (RecipientList) isRecipients() {}

// StoredList references a recipient list stored in the provider account.
type StoredList string

// Add discards the stored list reference and starts a new explicit list
// holding only r.
func (StoredList) Add(r Recipient) Recipients {
	return RecipientList{r}
}

// Len is always zero; the provider resolves the list members.
func (StoredList) Len() int {
	return 0
}

// MarshalJSON encodes the reference as {"list_id": name}.
func (s StoredList) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ListID string `json:"list_id"`
	}{ListID: string(s)})
}

func (StoredList) isRecipients() {}
