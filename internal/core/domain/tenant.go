package domain

import "strings"

// TenantID identifies the owner of every stored row.
// Obtain one through ParseTenantID so that blank values never reach storage.
type TenantID string

// ParseTenantID trims raw and returns it as a TenantID.
// Returns ErrTenantRequired when the result is empty.
func ParseTenantID(raw string) (TenantID, error) {
	t := strings.TrimSpace(raw)
	if t == "" {
		return "", ErrTenantRequired
	}
	return TenantID(t), nil
}

// Validate returns ErrTenantRequired if the tenant is blank.
func (t TenantID) Validate() error {
	if strings.TrimSpace(string(t)) == "" {
		return ErrTenantRequired
	}
	return nil
}

// String returns the string representation.
func (t TenantID) String() string {
	return string(t)
}
