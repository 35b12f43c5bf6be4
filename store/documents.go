package store

// MenuDetails is the document stored at QrCode/menu/<key>/details.json.
// Menu files (Logo.png, Breakfast.pdf, ...) are stored as assets beside it.
type MenuDetails struct {
	RestaurantName string `json:"restaurantName"`
	Description    string `json:"description"`
}

// AppLinks holds per-platform download links for an app.
type AppLinks struct {
	AndroidURL string `json:"androidUrl"`
	IOSURL     string `json:"iosUrl"`
	OtherURL   string `json:"otherUrl"`
}

// FacebookProfile holds a Facebook username.
type FacebookProfile struct {
	Username string `json:"username"`
}

// Coupon is a discount offered by a company.
type Coupon struct {
	Company      string `json:"company"`
	DiscountType string `json:"discountType"`
	DiscountCode string `json:"discountCode"`
}
