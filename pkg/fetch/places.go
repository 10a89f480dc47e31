package fetch

// PlacesResponse is the envelope returned by the Places search endpoints.
// Decode a successful [Result] into it with [Result.Decode].
type PlacesResponse struct {
	Status           string   `json:"status"`
	ErrorMessage     string   `json:"error_message,omitempty"`
	HTMLAttributions []string `json:"html_attributions"`
	NextPageToken    string   `json:"next_page_token,omitempty"`
	Results          []Place  `json:"results"`
}

// Place is one search result.
type Place struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity,omitempty"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	BusinessStatus   string   `json:"business_status,omitempty"`
	Geometry         Geometry `json:"geometry"`
	Rating           float64  `json:"rating,omitempty"`
	UserRatingsTotal int      `json:"user_ratings_total,omitempty"`
	Types            []string `json:"types,omitempty"`
}

// Address returns the formatted address, falling back to the vicinity.
func (p Place) Address() string {
	if p.FormattedAddress != "" {
		return p.FormattedAddress
	}
	return p.Vicinity
}

// Geometry holds a result's position.
type Geometry struct {
	Location LatLng `json:"location"`
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Places decodes the result payload as a [PlacesResponse].
func (r Result) Places() (*PlacesResponse, error) {
	var p PlacesResponse
	if err := r.Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
