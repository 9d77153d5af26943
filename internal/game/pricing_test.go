package game

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestIndependentChange(t *testing.T) {
	gpu := Instrument{Volatility: 0.35}
	got := independentChange(&gpu, 10, 1, script(0.5))
	want := (0.5 - 0.45 + 0.35) * 0.35 * 2
	if !approx(got, want) {
		t.Fatalf("generic change got=%v want=%v", got, want)
	}

	vault := Instrument{Volatility: 0.18, SkillLinked: true}
	low := independentChange(&vault, 10, 1, script(0.5))
	high := independentChange(&vault, 30, 1, script(0.5))
	if !approx(low, (0.05+0.18)*0.36) {
		t.Fatalf("skill-linked at baseline got=%v", low)
	}
	// bonus capped at 0.10: skew 0.23, amplitude 0.13.
	if !approx(high, (0.05+0.23)*0.26) {
		t.Fatalf("skill-linked capped got=%v", high)
	}
	capped := independentChange(&vault, 90, 1, script(0.5))
	if !approx(capped, high) {
		t.Fatalf("skill bonus should be capped: %v vs %v", capped, high)
	}
}

func TestIndependentChangeFundTiers(t *testing.T) {
	high := Instrument{Volatility: 0.25, FundType: FundHigh}
	if got := independentChange(&high, 10, 1, script(0.9, 0.5, 0.01, 0.2)); got != -highShockSize {
		t.Fatalf("high tier shock got=%v want=-0.40", got)
	}
	if got := independentChange(&high, 10, 1, script(0.9, 0.5, 0.01, 0.7)); got != highShockSize {
		t.Fatalf("high tier shock got=%v want=+0.40", got)
	}
	if got := independentChange(&high, 10, 1, script(0.9, 0.75, 0.5)); !approx(got, 0.125) {
		t.Fatalf("high tier draw got=%v want=0.125", got)
	}

	medium := Instrument{Volatility: 0.08, FundType: FundMedium}
	early := independentChange(&medium, 10, 1, script(0.5))
	late := independentChange(&medium, 10, 20, script(0.5))
	if !(late > early) || !approx(early, 0.002+0.005) {
		t.Fatalf("medium drift should grow with days: early=%v late=%v", early, late)
	}
	if got := independentChange(&medium, 200, 200, script(0.5)); !approx(got, mediumDriftCap) {
		t.Fatalf("medium drift should be capped, got=%v", got)
	}

	stable := Instrument{Volatility: 0.02, FundType: FundStable}
	for _, u := range []float64{0, 0.3, 0.999} {
		got := independentChange(&stable, 10, 1, script(u))
		if math.Abs(got) > 0.02 {
			t.Fatalf("stable tier out of band: %v", got)
		}
	}
}

func TestRepriceAllDerivedAfterIndependents(t *testing.T) {
	list := NewCatalog(VariantClassic)
	repriceAll(list, 10, 1, script(0.99))

	fund := findByName(list, NameGrowthFund)
	if fund == nil {
		t.Fatal("fund missing")
	}
	// Every sector rallied hard, so the fund is pinned to the +5% clamp.
	if fund.Price != 31.5 {
		t.Fatalf("fund price got=%v want=31.5", fund.Price)
	}
	if fund.ConsecutiveUpDays != 1 || fund.PreviousPrice != 30 {
		t.Fatalf("fund bookkeeping wrong: %+v", fund)
	}

	list = NewCatalog(VariantClassic)
	repriceAll(list, 10, 1, script(0.0))
	fund = findByName(list, NameGrowthFund)
	if fund.Price != 28.5 || fund.ConsecutiveUpDays != 0 {
		t.Fatalf("fund should drop to the -5%% clamp, got %+v", fund)
	}
}

func TestDerivedChangeWeights(t *testing.T) {
	list := []Instrument{
		{Category: CategoryGrind, Price: 101, PreviousPrice: 100},
		{Category: CategoryConsumption, Price: 98, PreviousPrice: 100},
		{Category: CategoryInfrastructure, Price: 102, PreviousPrice: 100},
		{Category: CategoryGrind, Price: 500, PreviousPrice: 100, Derived: true},
	}
	want := 0.4*0.01 + 0.3*-0.02 + 0.3*0.02
	if got := derivedChange(list); !approx(got, want) {
		t.Fatalf("derived change got=%v want=%v", got, want)
	}
}

func TestRecordPriceInvariants(t *testing.T) {
	inst := Instrument{Price: 2, PreviousPrice: 2, History: []float64{2}}
	for i := 0; i < 20; i++ {
		inst.recordPrice(inst.Price * 0.5)
		if inst.Price < PriceFloor {
			t.Fatalf("price fell below floor: %v", inst.Price)
		}
		if len(inst.History) > HistoryLimit {
			t.Fatalf("history too long: %d", len(inst.History))
		}
	}
	if inst.ConsecutiveUpDays != 0 {
		t.Fatalf("flat/down days must reset the streak")
	}
	inst.recordPrice(5)
	inst.recordPrice(6)
	if inst.ConsecutiveUpDays != 2 {
		t.Fatalf("streak got=%d want=2", inst.ConsecutiveUpDays)
	}
	if inst.History[len(inst.History)-1] != 6 || len(inst.History) != HistoryLimit {
		t.Fatalf("history not rolled: %v", inst.History)
	}
}
