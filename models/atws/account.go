package atws

// Account is a customer, prospect or vendor organization.
type Account struct {
	ID            int64  `xml:"id"`
	AccountName   string `xml:"AccountName"`
	AccountNumber string `xml:"AccountNumber"`
	AccountType   int    `xml:"AccountType"`
	Active        bool   `xml:"Active"`
	Phone         string `xml:"Phone"`
	WebAddress    string `xml:"WebAddress"`
	City          string `xml:"City"`
	Country       string `xml:"Country"`
	// CreateDate is kept as sent by the service; callers parse it if needed.
	CreateDate string `xml:"CreateDate"`
}

func (*Account) EntityType() string { return "Account" }

func init() {
	Register("Account", func() Entity { return &Account{} })
}
