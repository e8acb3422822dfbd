package models

// RawListing holds listing fields exactly as text, as captured from a result
// envelope or the rendered page, before coercion into a Listing.
type RawListing struct {
	ID             string
	PriceText      string
	PriceValue     string
	Address        string
	Bedrooms       string
	Bathrooms      string
	BuildingType   string
	Storeys        string
	InteriorSize   string
	LotSize        string
	Description    string
	TimeOnMarket   string
	PriceChangeAge string
	URLPath        string
}
