package authz

import (
	"encoding/json"

	"github.com/google/uuid"
)

type storeManagerData struct {
	StoreID uuid.UUID `json:"store_id"`
}

// storeMatchesRoleData reports whether a StoreManager role's opaque data
// blob names storeID as the store it manages.
func storeMatchesRoleData(data []byte, storeID uuid.UUID) bool {
	var d storeManagerData
	if err := json.Unmarshal(data, &d); err != nil {
		return false
	}
	return d.StoreID == storeID
}
