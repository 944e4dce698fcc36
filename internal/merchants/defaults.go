package merchants

// defaultDocument is used until a source has been loaded and whenever the
// source is unreachable.
var defaultDocument = Document{
	Merchants: []MerchantGroup{
		{Name: "Food & Groceries", Merchants: []MerchantEntry{
			{"Woolworths", "Food"},
			{"Pick n Pay", "Shopping"},
			{"Checkers", "Shopping"},
			{"Spar", "Shopping"},
			{"Food Lovers", "Food"},
			{"VINSTRA CAFE/SUPERMARKE", "Food"},
			{"KINGS MEAT DELI", "Food"},
			{"BK CASTLE GATE", "Food"},
			{"Burger King", "Food"},
			{"UBER EATS", "Food"},
			{"PnP", "Shopping"},
			{"TOPS", "Shopping"},
		}},
		{Name: "Transport", Merchants: []MerchantEntry{
			{"Shell", "Transport"},
			{"Engen", "Transport"},
			{"Sasol", "Transport"},
			{"BP", "Transport"},
			{"Total", "Transport"},
			{"Uber", "Transport"},
			{"Bolt", "Transport"},
		}},
		{Name: "Healthcare", Merchants: []MerchantEntry{
			{"Dischem", "Healthcare"},
			{"Clicks", "Healthcare"},
			{"DISC PREM", "Healthcare"},
			{"DISCLIFE", "Healthcare"},
			{"DISC INVT", "Healthcare"},
		}},
		{Name: "Entertainment", Merchants: []MerchantEntry{
			{"Netflix", "Entertainment"},
			{"Spotify", "Entertainment"},
			{"Showmax", "Entertainment"},
			{"MOREGOLF", "Entertainment"},
			{"BETWAY", "Entertainment"},
			{"STEAMGAMES", "Entertainment"},
			{"Google Golf", "Entertainment"},
			{"Yoco", "Entertainment"},
			{"Play With", "Entertainment"},
			{"Extreme Wargami", "Entertainment"},
		}},
		{Name: "Rent", Merchants: []MerchantEntry{
			{"PAYPROP", "Rent"},
		}},
		{Name: "Bills & Utilities", Merchants: []MerchantEntry{
			{"Vodacom", "Bills"},
			{"MTN", "Bills"},
			{"Telkom", "Bills"},
			{"VOXTELECOM", "Bills"},
			{"Microsoft", "Bills"},
			{"Google One", "Bills"},
			{"Google DopaMax", "Bills"},
			{"VIRGIN ACT", "Bills"},
			{"BYC DEBIT", "Bills"},
			{"Eskom", "Bills"},
			{"City Power", "Bills"},
		}},
		{Name: "Salary", Merchants: []MerchantEntry{
			{"NETCASH", "Salary"},
			{"STANSAL", "Salary"},
		}},
		{Name: "Transfers", Merchants: []MerchantEntry{
			{"FNB APP PAYMENT", "Transfers"},
			{"ABSA BANK", "Transfers"},
			{"MOTHER", "Transfers"},
			{"BLOB", "Transfers"},
			{"FNB PLOAN", "Transfers"},
			{"INT-BANKING PMT", "Transfers"},
		}},
		{Name: "Shopping", Merchants: []MerchantEntry{
			{"Amazon", "Shopping"},
			{"Takealot", "Shopping"},
			{"Mr Price", "Shopping"},
			{"Foschini", "Shopping"},
			{"SORBET MAN", "Shopping"},
			{"KAMERS / MAKERS", "Shopping"},
			{"Total Newlands", "Shopping"},
		}},
	},
	Patterns: []CategoryPattern{
		{Category: "Food", Description: "Food and dining related transactions", Keywords: []string{
			"grocery", "food", "supermarket", "cafe", "restaurant", "dining",
			"burger", "meat", "eats", "vinstra", "kings meat", "bk castle",
		}},
		{Category: "Transport", Description: "Transportation and fuel related transactions", Keywords: []string{
			"petrol", "fuel", "gas", "transport", "engen", "shell", "bp", "total",
		}},
		{Category: "Bills", Description: "Bills and utility payments", Keywords: []string{
			"electricity", "water", "bill", "monthly", "fee", "int pymt",
			"byc", "vodacom", "microsoft", "google", "virgin", "voxtelcom",
		}},
		{Category: "Rent", Description: "Rent and housing payments", Keywords: []string{
			"rent", "payprop",
		}},
		{Category: "Shopping", Description: "Shopping and retail purchases", Keywords: []string{
			"shopping", "store", "retail", "amazon", "takealot", "sorbet",
			"kamers", "makers", "pnp", "pick n pay", "checkers", "spar",
			"tops", "purc", "woolworths", "food lovers",
		}},
		{Category: "Entertainment", Description: "Entertainment and leisure activities", Keywords: []string{
			"entertainment", "movie", "streaming", "golf", "betway", "steam",
			"yoco", "play", "wargami",
		}},
		{Category: "Salary", Description: "Salary and income payments", Keywords: []string{
			"salary", "income", "netcash", "stansal", "pay",
		}},
		{Category: "Transfers", Description: "Bank transfers and payments", Keywords: []string{
			"transfer", "eft", "payment", "fnb", "absa", "mother",
			"blob", "ploan",
		}},
		{Category: "Healthcare", Description: "Healthcare and medical expenses", Keywords: []string{
			"dischem", "clicks", "pharmacy", "disc", "health", "medical",
		}},
	},
}

var defaultDictionary = mustDictionary(defaultDocument)

// Default returns the built-in dictionary.
func Default() *Dictionary {
	return defaultDictionary
}

// DefaultDocument returns a copy of the built-in dictionary document.
func DefaultDocument() Document {
	return defaultDictionary.Document()
}

func mustDictionary(doc Document) *Dictionary {
	d, err := NewDictionary(doc)
	if err != nil {
		panic(err)
	}
	return d
}
