// internal/domain/payment/dto.go
package payment

type AddCardRequest struct {
	Number      string `json:"number" binding:"required"`
	CVV         string `json:"cvv" binding:"required"`
	ExpiryMonth int    `json:"expiry_month" binding:"required"`
	ExpiryYear  int    `json:"expiry_year" binding:"required"`
	HolderName  string `json:"holder_name" binding:"required"`
	IsDefault   bool   `json:"is_default"`
}

type AddBankAccountRequest struct {
	AccountNumber string `json:"account_number" binding:"required"`
	AccountName   string `json:"account_name" binding:"required"`
	BankName      string `json:"bank_name" binding:"required"`
	BankCode      string `json:"bank_code"`
	IsDefault     bool   `json:"is_default"`
}

type AddMpesaRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	AccountName string `json:"account_name"`
	IsDefault   bool   `json:"is_default"`
}
