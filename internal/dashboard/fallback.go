package dashboard

import (
	"time"

	"vendorrisk/internal/models"
)

func day(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

// SampleVendors returns the bundled vendor list shown when the API cannot
// be used. Each call returns fresh copies.
func SampleVendors() []models.Vendor {
	vendors := []models.Vendor{
		{ID: 1, Name: "Ephemeral", Domain: "ephemeral.io", Logo: "E", LogoColor: "from-pink-400 to-pink-600", Rating: 60, Trend: 5, TrendUp: true, LastAssessed: day(22), Status: models.VendorActive, Categories: []string{"Customer data", "Admin"}, Monitored: true},
		{ID: 2, Name: "Stack3d Lab", Domain: "stack3dlab.com", Logo: "S", LogoColor: "from-emerald-400 to-emerald-600", Rating: 72, Trend: 4, TrendUp: false, LastAssessed: day(20), Status: models.VendorActive, Categories: []string{"Business data", "Admin"}, Monitored: true},
		{ID: 3, Name: "Warpspeed", Domain: "getwarpspeed.com", Logo: "W", LogoColor: "from-cyan-400 to-cyan-600", Rating: 78, Trend: 6, TrendUp: true, LastAssessed: day(24), Status: models.VendorActive, Categories: []string{"Customer data", "Financials"}, Monitored: true},
		{ID: 4, Name: "CloudWatch", Domain: "cloudwatch.app", Logo: "C", LogoColor: "from-blue-400 to-blue-600", Rating: 38, Trend: 8, TrendUp: true, LastAssessed: day(26), Status: models.VendorActive, Categories: []string{"Database access", "Admin"}, Monitored: false},
		{ID: 5, Name: "ContrastAI", Domain: "contrastai.com", Logo: "C", LogoColor: "from-indigo-400 to-indigo-600", Rating: 42, Trend: 1, TrendUp: false, LastAssessed: day(18), Status: models.VendorActive, Categories: []string{"Salesforce", "Admin"}, Monitored: false},
		{ID: 6, Name: "Convergence", Domain: "convergence.io", Logo: "C", LogoColor: "from-purple-400 to-purple-600", Rating: 66, Trend: 6, TrendUp: false, LastAssessed: day(28), Status: models.VendorActive, Categories: []string{"Business data", "Admin"}, Monitored: true},
		{ID: 7, Name: "Sisyphus", Domain: "sisyphus.com", Logo: "S", LogoColor: "from-green-400 to-green-600", Rating: 91, Trend: 2, TrendUp: true, LastAssessed: day(16), Status: models.VendorInactive, Categories: []string{"Customer data", "Financials"}, Monitored: true},
	}
	for i := range vendors {
		vendors[i].CreatedAt = vendors[i].LastAssessed
		vendors[i].UpdatedAt = vendors[i].LastAssessed
		vendors[i].RecomputeExtraCategories()
	}
	return vendors
}
