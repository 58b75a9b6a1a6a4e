package fare

// Static route reference data. The estimator works for any airport pair;
// codes missing from these tables fall back to duration-based estimates.

var airportCountries = map[string]string{
	// Turkey
	"IST": "Turkey", "SAW": "Turkey", "ESB": "Turkey", "ADB": "Turkey", "AYT": "Turkey",
	// USA
	"JFK": "USA", "LAX": "USA", "ORD": "USA", "DFW": "USA", "MIA": "USA", "SFO": "USA",
	// Europe
	"LHR": "UK", "CDG": "France", "FRA": "Germany", "AMS": "Netherlands", "MAD": "Spain",
	"FCO": "Italy", "VIE": "Austria", "ZUR": "Switzerland", "CPH": "Denmark",
	// Middle East
	"DXB": "UAE", "AUH": "UAE", "DOH": "Qatar", "RUH": "Saudi Arabia",
	// Asia
	"SIN": "Singapore", "BKK": "Thailand", "HKG": "Hong Kong",
	"NRT": "Japan", "ICN": "South Korea", "PEK": "China", "BOM": "India", "DEL": "India",
}

// Great-circle distances in kilometers for routes we price precisely.
var routeDistances = map[string]float64{
	"IST-DXB": 3100, "SAW-DXB": 3100, "IST-JFK": 7800, "IST-LHR": 2500, "IST-FRA": 1900,
	"IST-CDG": 2400, "IST-AMS": 2200, "IST-AYT": 480, "IST-ADB": 350, "IST-ESB": 350,
	"LHR-CDG": 340, "LHR-FRA": 650, "LHR-AMS": 360, "CDG-FRA": 450,
	"DXB-LHR": 5500, "DXB-SIN": 6200, "DXB-BKK": 4600,
	"JFK-LAX": 4000, "JFK-SFO": 4100, "JFK-MIA": 1800,
	"JFK-LHR": 5500, "JFK-CDG": 5800,
}

// High-demand business routes that carry premium pricing.
var premiumRoutes = map[string]struct{}{
	"IST-DXB": {}, "SAW-DXB": {}, "IST-JFK": {}, "IST-LHR": {}, "IST-FRA": {},
	"JFK-LAX": {}, "JFK-LHR": {}, "LHR-CDG": {}, "DXB-LHR": {},
}
