// internal/domain/organization/dto.go
package organization

type CreateOrganizationRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone" binding:"required"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	Country     string `json:"country"`
}

type UpdateOrganizationRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	AddressLine *string `json:"address_line"`
	City        *string `json:"city"`
	Country     *string `json:"country"`
}
