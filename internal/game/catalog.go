package game

const (
	NameMixueTea      = "Mixue Tea"
	NameGPUGear       = "GPU Gear"
	NameSparkCareers  = "Spark Careers"
	NameGradExamVault = "Grad Exam Vault"
	NameCampusWiFi    = "Campus WiFi"
	NameSharedBikes   = "Shared Bikes"
	NameFoodDelivery  = "Food Delivery"
	NameGrowthFund    = "Campus Growth Fund"
	NameAngelFund     = "Angel Venture Fund"
	NameScholarFund   = "Scholar Balanced Fund"
	NameCanteenFund   = "Canteen Bond Fund"
)

const derivedFundMinSkill = 20

// derivedWeights are the sector weights of the fund-of-sectors instrument.
var derivedWeights = []struct {
	Category Category
	Weight   float64
}{
	{CategoryGrind, 0.4},
	{CategoryConsumption, 0.3},
	{CategoryInfrastructure, 0.3},
}

const derivedMaxChange = 0.05

var sectorSeed = []Instrument{
	{ID: 1, Name: NameMixueTea, Category: CategorySocial, Price: 10, Volatility: 0.15},
	{ID: 2, Name: NameGPUGear, Category: CategoryConsumption, Price: 50, Volatility: 0.35},
	{ID: 3, Name: NameSparkCareers, Category: CategoryGrind, Price: 20, Volatility: 0.20},
	{ID: 4, Name: NameGradExamVault, Category: CategoryGrind, Price: 15, Volatility: 0.18, SkillLinked: true},
	{ID: 5, Name: NameCampusWiFi, Category: CategoryInfrastructure, Price: 8, Volatility: 0.08},
	{ID: 6, Name: NameSharedBikes, Category: CategoryInfrastructure, Price: 12, Volatility: 0.10},
	{ID: 7, Name: NameFoodDelivery, Category: CategoryInfrastructure, Price: 18, Volatility: 0.09},
}

var classicFunds = []Instrument{
	{ID: 8, Name: NameGrowthFund, Category: CategoryGrind, Price: 30, Volatility: 0.05, Derived: true, RiskLevel: "low", MinSkill: derivedFundMinSkill},
}

var tieredFunds = []Instrument{
	{ID: 8, Name: NameAngelFund, Category: CategoryFund, Price: 40, Volatility: 0.25, FundType: FundHigh, RiskLevel: "high", MinSkill: 30},
	{ID: 9, Name: NameScholarFund, Category: CategoryFund, Price: 25, Volatility: 0.08, FundType: FundMedium, RiskLevel: "medium", MinSkill: 20},
	{ID: 10, Name: NameCanteenFund, Category: CategoryFund, Price: 20, Volatility: 0.02, FundType: FundStable, RiskLevel: "low", MinSkill: 10},
}

// NewCatalog builds a fresh instrument list for a variant.
func NewCatalog(v Variant) []Instrument {
	funds := classicFunds
	if v == VariantTiered {
		funds = tieredFunds
	}
	out := make([]Instrument, 0, len(sectorSeed)+len(funds))
	for _, seed := range append(append([]Instrument(nil), sectorSeed...), funds...) {
		inst := seed.clone()
		inst.PreviousPrice = inst.Price
		inst.History = []float64{inst.Price}
		out = append(out, inst)
	}
	return out
}

// fundTipTarget names the fund that the blackmail tip talks about.
func fundTipTarget(list []Instrument) string {
	for idx := range list {
		if list[idx].IsFundClass() {
			return list[idx].Name
		}
	}
	return ""
}
