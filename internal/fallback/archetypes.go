package fallback

import (
	"math"

	"github.com/policyvoice/corroborate/internal/geo"
	"github.com/policyvoice/corroborate/internal/model"
)

type builder func(geo.Archetype, model.Geography) model.Payload

var builders = map[string]builder{
	model.AdapterDemographics:    demographics,
	model.AdapterEnergy:          energy,
	model.AdapterClimate:         climate,
	model.AdapterHousing:         housing,
	model.AdapterInfrastructure:  infrastructure,
	model.AdapterEmergency:       emergency,
	model.AdapterCrime:           crime,
	model.AdapterCampaignFinance: campaignFinance,
	model.AdapterLegislative:     legislative,
	model.AdapterHigherEducation: higherEducation,
	model.AdapterVeterans:        veterans,
	model.AdapterSpending:        spending,
	model.AdapterRegulatory:      regulatory,
}

// Archetype values are rounded from recent national releases for
// representative states in each class.

type demographicsRow struct {
	population, households int64
	income, poverty, age   float64
}

var demographicsRows = map[geo.Archetype]demographicsRow{
	geo.MetroCoastal: {9_500_000, 3_500_000, 84_000, 11.0, 38.5},
	geo.Sunbelt:      {12_000_000, 4_500_000, 66_000, 13.5, 37.8},
	geo.Heartland:    {5_500_000, 2_200_000, 65_000, 12.0, 38.9},
	geo.Rural:        {1_100_000, 430_000, 58_000, 14.5, 41.2},
	geo.Territory:    {1_000_000, 350_000, 24_000, 40.0, 42.0},
}

func demographics(a geo.Archetype, g model.Geography) model.Payload {
	r := demographicsRows[a]
	area := g.State
	if s, ok := geo.Lookup(g.State); ok {
		area = s.Name
	}
	return &model.DemographicsData{
		Area:                  area,
		Population:            r.population,
		Households:            r.households,
		MedianHouseholdIncome: r.income,
		PovertyRate:           r.poverty,
		MedianAge:             r.age,
	}
}

type energyRow struct {
	price, previous, renewable float64
}

var energyRows = map[geo.Archetype]energyRow{
	geo.MetroCoastal: {24.5, 22.8, 35},
	geo.Sunbelt:      {14.2, 13.6, 18},
	geo.Heartland:    {14.0, 13.4, 30},
	geo.Rural:        {12.8, 12.3, 45},
	geo.Territory:    {28.0, 25.5, 5},
}

func energy(a geo.Archetype, _ model.Geography) model.Payload {
	r := energyRows[a]
	return &model.EnergyData{
		Year:                  2023,
		ResidentialPriceCents: r.price,
		PreviousPriceCents:    r.previous,
		PriceChangePct:        round1((r.price - r.previous) / r.previous * 100),
		NationalAvgCents:      16.0,
		RenewableSharePct:     r.renewable,
	}
}

type climateRow struct {
	avg, normal, precip, normalPrecip float64
	heatDays                          int
}

var climateRows = map[geo.Archetype]climateRow{
	geo.MetroCoastal: {55.8, 54.6, 46.0, 44.0, 12},
	geo.Sunbelt:      {68.4, 66.9, 42.0, 45.5, 95},
	geo.Heartland:    {52.9, 51.8, 36.5, 35.0, 25},
	geo.Rural:        {45.1, 43.9, 18.0, 17.5, 20},
	geo.Territory:    {80.2, 79.6, 60.0, 62.0, 80},
}

func climate(a geo.Archetype, _ model.Geography) model.Payload {
	r := climateRows[a]
	return &model.ClimateData{
		Year:             2023,
		AvgTempF:         r.avg,
		NormalTempF:      r.normal,
		TempAnomalyF:     round1(r.avg - r.normal),
		AnnualPrecipIn:   r.precip,
		NormalPrecipIn:   r.normalPrecip,
		PrecipAnomalyPct: round1((r.precip - r.normalPrecip) / r.normalPrecip * 100),
		HeatDays:         r.heatDays,
	}
}

type housingRow struct {
	fmr, rent, burden   float64
	population, renters int64
}

var housingRows = map[geo.Archetype]housingRow{
	geo.MetroCoastal: {2350, 1850, 33.5, 9_500_000, 1_450_000},
	geo.Sunbelt:      {1450, 1250, 31.0, 12_000_000, 1_700_000},
	geo.Heartland:    {1100, 980, 28.5, 5_500_000, 700_000},
	geo.Rural:        {950, 850, 27.0, 1_100_000, 130_000},
	geo.Territory:    {800, 600, 30.0, 1_000_000, 100_000},
}

func housing(a geo.Archetype, _ model.Geography) model.Payload {
	r := housingRows[a]
	return &model.HousingData{
		Year:              2024,
		FairMarketRent2BR: r.fmr,
		MedianGrossRent:   r.rent,
		RentBurdenRatio:   r.burden,
		Population:        r.population,
		RenterHouseholds:  r.renters,
	}
}

type bridgeRow struct {
	total, good, fair, poor int
}

var bridgeRows = map[geo.Archetype]bridgeRow{
	geo.MetroCoastal: {9000, 3600, 4700, 700},
	geo.Sunbelt:      {30000, 14000, 15200, 800},
	geo.Heartland:    {20000, 8500, 9700, 1800},
	geo.Rural:        {6500, 2600, 3200, 700},
	geo.Territory:    {2300, 500, 1500, 300},
}

func infrastructure(a geo.Archetype, _ model.Geography) model.Payload {
	r := bridgeRows[a]
	return &model.InfrastructureData{
		Year:         2024,
		TotalBridges: r.total,
		GoodBridges:  r.good,
		FairBridges:  r.fair,
		PoorBridges:  r.poor,
		PoorPct:      round1(float64(r.poor) / float64(r.total) * 100),
	}
}

type emergencyRow struct {
	incidents map[string]int
	recent    int
	ihp       float64
}

var emergencyRows = map[geo.Archetype]emergencyRow{
	geo.MetroCoastal: {map[string]int{"Severe Storm": 20, "Hurricane": 8, "Flood": 6, "Fire": 4, "Snowstorm": 5, "Biological": 1}, 6, 250e6},
	geo.Sunbelt:      {map[string]int{"Hurricane": 18, "Severe Storm": 25, "Flood": 12, "Fire": 10, "Tornado": 8, "Biological": 1}, 10, 900e6},
	geo.Heartland:    {map[string]int{"Severe Storm": 30, "Flood": 15, "Tornado": 10, "Snowstorm": 6, "Biological": 1}, 7, 120e6},
	geo.Rural:        {map[string]int{"Fire": 14, "Severe Storm": 12, "Flood": 8, "Snowstorm": 4, "Biological": 1}, 5, 30e6},
	geo.Territory:    {map[string]int{"Hurricane": 12, "Severe Storm": 6, "Flood": 4, "Earthquake": 2, "Typhoon": 3}, 4, 1.2e9},
}

func emergency(a geo.Archetype, _ model.Geography) model.Payload {
	r := emergencyRows[a]
	counts := make(map[string]int, len(r.incidents))
	total := 0
	for k, v := range r.incidents {
		counts[k] = v
		total += v
	}
	return &model.EmergencyData{
		TotalDeclarations:  total,
		RecentDeclarations: r.recent,
		Declarations:       []model.Declaration{},
		IncidentCounts:     counts,
		IHPApproved:        r.ihp,
	}
}

type crimeRow struct {
	reported, unreported int64
	violent, property    float64
}

var crimeRows = map[geo.Archetype]crimeRow{
	geo.MetroCoastal: {1_900_000, 2_600_000, 22.5, 96},
	geo.Sunbelt:      {2_400_000, 3_100_000, 23.1, 101},
	geo.Heartland:    {1_300_000, 1_700_000, 21.0, 92},
	geo.Rural:        {350_000, 480_000, 18.5, 80},
	geo.Territory:    {90_000, 160_000, 15.0, 60},
}

func crime(a geo.Archetype, g model.Geography) model.Payload {
	r := crimeRows[a]
	rate := 0.0
	if total := r.reported + r.unreported; total > 0 {
		rate = round1(float64(r.reported) / float64(total) * 100)
	}
	return &model.CrimeData{
		Year:          2023,
		Region:        string(geo.RegionOf(g.State)),
		Reported:      r.reported,
		Unreported:    r.unreported,
		ReportingRate: rate,
		ViolentRate:   r.violent,
		PropertyRate:  r.property,
	}
}

type financeRow struct {
	candidates                   int
	receipts, disbursements, pac float64
}

var financeRows = map[geo.Archetype]financeRow{
	geo.MetroCoastal: {45, 420e6, 390e6, 60e6},
	geo.Sunbelt:      {60, 380e6, 350e6, 55e6},
	geo.Heartland:    {30, 120e6, 110e6, 20e6},
	geo.Rural:        {12, 35e6, 32e6, 6e6},
	geo.Territory:    {3, 1.5e6, 1.2e6, 0.2e6},
}

func campaignFinance(a geo.Archetype, _ model.Geography) model.Payload {
	r := financeRows[a]
	return &model.CampaignFinanceData{
		Cycle:              2024,
		CandidateCount:     r.candidates,
		TotalReceipts:      r.receipts,
		TotalDisbursements: r.disbursements,
		PACContributions:   r.pac,
		TopCandidates:      []model.Candidate{},
	}
}

func legislative(_ geo.Archetype, _ model.Geography) model.Payload {
	return &model.LegislativeData{
		Congress: 118,
		Members:  []model.Member{},
		Bills:    []model.Bill{},
	}
}

type educationRow struct {
	institutions                  int
	netPrice, tuition, debt, pell float64
}

var educationRows = map[geo.Archetype]educationRow{
	geo.MetroCoastal: {180, 19500, 12500, 17000, 32},
	geo.Sunbelt:      {200, 15500, 9800, 19500, 38},
	geo.Heartland:    {110, 16000, 10500, 20500, 33},
	geo.Rural:        {30, 14000, 8800, 18500, 35},
	geo.Territory:    {40, 7000, 4000, 9000, 65},
}

func higherEducation(a geo.Archetype, _ model.Geography) model.Payload {
	r := educationRows[a]
	return &model.HigherEducationData{
		Year:              2022,
		Institutions:      r.institutions,
		AvgNetPrice:       r.netPrice,
		AvgInStateTuition: r.tuition,
		MedianDebt:        r.debt,
		PellGrantRate:     r.pell,
	}
}

type veteransRow struct {
	facilities, health, benefits, centers int
	wait                                  float64
}

var veteransRows = map[geo.Archetype]veteransRow{
	geo.MetroCoastal: {95, 70, 10, 12, 24},
	geo.Sunbelt:      {120, 90, 12, 15, 28},
	geo.Heartland:    {70, 52, 7, 8, 22},
	geo.Rural:        {30, 22, 3, 4, 30},
	geo.Territory:    {10, 7, 1, 1, 35},
}

func veterans(a geo.Archetype, _ model.Geography) model.Payload {
	r := veteransRows[a]
	return &model.VeteransData{
		Facilities:       r.facilities,
		HealthFacilities: r.health,
		BenefitsOffices:  r.benefits,
		VetCenters:       r.centers,
		AvgWaitDays:      r.wait,
	}
}

type spendingRow struct {
	total, prior float64
	population   int64
	agencies     []model.AgencyAmount
}

var spendingRows = map[geo.Archetype]spendingRow{
	geo.MetroCoastal: {190e9, 182e9, 9_500_000, []model.AgencyAmount{
		{Name: "Department of Health and Human Services", Amount: 95e9},
		{Name: "Social Security Administration", Amount: 40e9},
		{Name: "Department of Defense", Amount: 20e9},
	}},
	geo.Sunbelt: {230e9, 221e9, 12_000_000, []model.AgencyAmount{
		{Name: "Department of Health and Human Services", Amount: 100e9},
		{Name: "Social Security Administration", Amount: 60e9},
		{Name: "Department of Defense", Amount: 35e9},
	}},
	geo.Heartland: {85e9, 82e9, 5_500_000, []model.AgencyAmount{
		{Name: "Department of Health and Human Services", Amount: 38e9},
		{Name: "Social Security Administration", Amount: 22e9},
		{Name: "Department of Veterans Affairs", Amount: 6e9},
	}},
	geo.Rural: {22e9, 21.5e9, 1_100_000, []model.AgencyAmount{
		{Name: "Department of Health and Human Services", Amount: 8e9},
		{Name: "Social Security Administration", Amount: 5.5e9},
		{Name: "Department of Agriculture", Amount: 2e9},
	}},
	geo.Territory: {28e9, 30e9, 1_000_000, []model.AgencyAmount{
		{Name: "Department of Health and Human Services", Amount: 14e9},
		{Name: "Department of Homeland Security", Amount: 5e9},
		{Name: "Department of Agriculture", Amount: 3e9},
	}},
}

func spending(a geo.Archetype, _ model.Geography) model.Payload {
	r := spendingRows[a]
	return &model.SpendingData{
		FiscalYear:       2024,
		TotalObligations: r.total,
		PriorObligations: r.prior,
		ChangePct:        round1((r.total - r.prior) / r.prior * 100),
		Population:       r.population,
		PerCapita:        round1(r.total / float64(r.population)),
		TopAgencies:      append([]model.AgencyAmount{}, r.agencies...),
	}
}

type regulatoryRow struct {
	total, rules, proposed, notices int
}

var regulatoryRows = map[geo.Archetype]regulatoryRow{
	geo.MetroCoastal: {140, 34, 28, 78},
	geo.Sunbelt:      {130, 32, 26, 72},
	geo.Heartland:    {110, 28, 22, 60},
	geo.Rural:        {90, 22, 18, 50},
	geo.Territory:    {40, 10, 8, 22},
}

func regulatory(a geo.Archetype, _ model.Geography) model.Payload {
	r := regulatoryRows[a]
	return &model.RegulatoryData{
		TotalCount:        r.total,
		RuleCount:         r.rules,
		ProposedRuleCount: r.proposed,
		NoticeCount:       r.notices,
		Agencies: []string{
			"Environmental Protection Agency",
			"Department of Transportation",
			"Department of Health and Human Services",
		},
		Documents: []model.RegDocument{},
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
