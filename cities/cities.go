/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cities

type City struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (c City) String() string {
	return c.Name + ", " + c.Country
}

// All returns a copy of the built-in catalog.
func All() []City {
	out := make([]City, len(catalog))
	copy(out, catalog)

	return out
}

// Spread across climates and hemispheres so a round can land anywhere from
// the tropics to the subarctic.
var catalog = []City{
	{"Tokyo", "Japan", 35.6762, 139.6503},
	{"New York", "United States", 40.7128, -74.0060},
	{"London", "United Kingdom", 51.5074, -0.1278},
	{"Paris", "France", 48.8566, 2.3522},
	{"Sydney", "Australia", -33.8688, 151.2093},
	{"Cairo", "Egypt", 30.0444, 31.2357},
	{"Rio de Janeiro", "Brazil", -22.9068, -43.1729},
	{"Moscow", "Russia", 55.7558, 37.6173},
	{"Mumbai", "India", 19.0760, 72.8777},
	{"Beijing", "China", 39.9042, 116.4074},
	{"Los Angeles", "United States", 34.0522, -118.2437},
	{"Mexico City", "Mexico", 19.4326, -99.1332},
	{"Buenos Aires", "Argentina", -34.6037, -58.3816},
	{"Cape Town", "South Africa", -33.9249, 18.4241},
	{"Reykjavik", "Iceland", 64.1466, -21.9426},
	{"Dubai", "United Arab Emirates", 25.2048, 55.2708},
	{"Singapore", "Singapore", 1.3521, 103.8198},
	{"Bangkok", "Thailand", 13.7563, 100.5018},
	{"Istanbul", "Turkey", 41.0082, 28.9784},
	{"Rome", "Italy", 41.9028, 12.4964},
	{"Berlin", "Germany", 52.5200, 13.4050},
	{"Madrid", "Spain", 40.4168, -3.7038},
	{"Toronto", "Canada", 43.6532, -79.3832},
	{"Vancouver", "Canada", 49.2827, -123.1207},
	{"Anchorage", "United States", 61.2181, -149.9003},
	{"Honolulu", "United States", 21.3069, -157.8583},
	{"Lima", "Peru", -12.0464, -77.0428},
	{"Santiago", "Chile", -33.4489, -70.6693},
	{"Bogota", "Colombia", 4.7110, -74.0721},
	{"Nairobi", "Kenya", -1.2921, 36.8219},
	{"Lagos", "Nigeria", 6.5244, 3.3792},
	{"Marrakesh", "Morocco", 31.6295, -7.9811},
	{"Stockholm", "Sweden", 59.3293, 18.0686},
	{"Oslo", "Norway", 59.9139, 10.7522},
	{"Helsinki", "Finland", 60.1699, 24.9384},
	{"Athens", "Greece", 37.9838, 23.7275},
	{"Lisbon", "Portugal", 38.7223, -9.1393},
	{"Amsterdam", "Netherlands", 52.3676, 4.9041},
	{"Vienna", "Austria", 48.2082, 16.3738},
	{"Prague", "Czech Republic", 50.0755, 14.4378},
	{"Seoul", "South Korea", 37.5665, 126.9780},
	{"Hong Kong", "China", 22.3193, 114.1694},
	{"Manila", "Philippines", 14.5995, 120.9842},
	{"Jakarta", "Indonesia", -6.2088, 106.8456},
	{"Auckland", "New Zealand", -36.8485, 174.7633},
	{"Perth", "Australia", -31.9505, 115.8605},
	{"Denver", "United States", 39.7392, -104.9903},
	{"Phoenix", "United States", 33.4484, -112.0740},
	{"Chicago", "United States", 41.8781, -87.6298},
	{"Miami", "United States", 25.7617, -80.1918},
	{"Havana", "Cuba", 23.1136, -82.3666},
	{"Tehran", "Iran", 35.6892, 51.3890},
	{"Riyadh", "Saudi Arabia", 24.7136, 46.6753},
	{"Kathmandu", "Nepal", 27.7172, 85.3240},
	{"Ulaanbaatar", "Mongolia", 47.8864, 106.9057},
	{"Yakutsk", "Russia", 62.0355, 129.6755},
	{"La Paz", "Bolivia", -16.4897, -68.1193},
	{"Addis Ababa", "Ethiopia", 8.9806, 38.7578},
	{"Hanoi", "Vietnam", 21.0278, 105.8342},
	{"Edinburgh", "United Kingdom", 55.9533, -3.1883},
}
