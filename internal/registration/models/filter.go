package models

import directory "orgportal/internal/directory/models"

// Filter narrows request listings. Zero-valued fields match everything;
// string matching is case-insensitive.
type Filter struct {
	Role        directory.Role
	CompanyName string
	Department  string
	Status      Status
}
