package marketplace

import (
	"encoding/base64"
	"errors"
	"strings"
)

// Credentials is the tenant-scoped triple used to authenticate against the platform
type Credentials struct {
	SupplierID string
	APIKey     string
	APISecret  string
}

// Validate checks that all parts of the triple are present
func (c Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(c.SupplierID) == "" {
		missing = append(missing, "supplier id")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "api key")
	}
	if strings.TrimSpace(c.APISecret) == "" {
		missing = append(missing, "api secret")
	}
	if len(missing) > 0 {
		return errors.New("incomplete credentials: missing " + strings.Join(missing, ", "))
	}
	return nil
}

func (c Credentials) authorization() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.APIKey+":"+c.APISecret))
}
