package game

import "fmt"

// EndDay settles the current day. If a dilemma fires the day is left open:
// the report has Paused set and the day only rolls over in ResolveDilemma.
func (e *Engine) EndDay() (DayReport, error) {
	st := e.state
	if st.Over {
		return DayReport{Day: st.Ledger.Day, Over: true, Outcome: st.Outcome}, ErrGameOver
	}
	if st.Pending != nil {
		return DayReport{Day: st.Ledger.Day, Paused: true, DilemmaID: st.Pending.ID}, ErrDilemmaPending
	}
	l := &st.Ledger
	report := DayReport{Day: l.Day}

	cost := st.Rules.LivingCost
	if l.spendCash(cost) {
		e.addLog(fmt.Sprintf("Paid living costs -%s", formatMoney(cost)), SeverityWarning)
	} else {
		e.addLog("Not enough cash to cover living costs!", SeverityError)
	}

	if e.totalAssets() <= 0 {
		e.terminate(OutcomeBankrupt, "You went bankrupt! Game over.")
		return e.closeReport(report), nil
	}
	if l.Energy <= 0 {
		e.terminate(OutcomeExhausted, "You collapsed from exhaustion! Game over.")
		return e.closeReport(report), nil
	}

	repriceAll(st.Instruments, l.Skill, l.Day, e.rng)
	report.Crashes = e.crashPass()

	if l.Story.AbsenceDays > 0 {
		l.Story.AbsenceDays--
		if l.Story.AbsenceDays == 0 {
			e.addLog("Your roommate moved back in... and still holds a grudge about the report.", SeverityWarning)
		}
	}

	ev := e.eventPass()
	report.EventID = ev.ID
	report.Headline = ev.Message
	st.Forecast = nil

	if l.Story.GoodwillDays > 0 {
		l.Story.GoodwillDays--
	}

	report.Dividends = e.dividendPass()

	if d := e.maybeDilemma(); d != nil {
		st.Pending = d
		if d.LocksTrading {
			l.TradingLocked = true
		}
		report.Paused = true
		report.DilemmaID = d.ID
		e.log.Info("dilemma offered", "session", st.SessionID, "day", l.Day, "dilemma", d.ID)
		return report, nil
	}

	e.finalizeDay()
	return e.closeReport(report), nil
}

// ResolveDilemma applies the chosen option of the pending dilemma and then
// completes the deferred day rollover.
func (e *Engine) ResolveDilemma(optionID string) (DayReport, error) {
	st := e.state
	if st.Over {
		return DayReport{Day: st.Ledger.Day, Over: true, Outcome: st.Outcome}, ErrGameOver
	}
	if st.Pending == nil {
		return DayReport{Day: st.Ledger.Day}, ErrNoDilemma
	}
	d := st.Pending
	opt, ok := d.option(optionID)
	if !ok {
		return DayReport{Day: st.Ledger.Day, Paused: true, DilemmaID: d.ID}, fmt.Errorf("%w: %q for %s", ErrInvalidOption, optionID, d.ID)
	}
	report := DayReport{Day: st.Ledger.Day, DilemmaID: d.ID}
	if d.LocksTrading {
		st.Ledger.TradingLocked = !opt.Effect.UnlockTrading
	}
	e.applyOption(opt)
	st.Pending = nil
	e.log.Info("dilemma resolved", "session", st.SessionID, "dilemma", d.ID, "option", opt.ID)

	e.finalizeDay()
	return e.closeReport(report), nil
}

// dividendPass ages every open position by one ended day and pays out on
// those now held for more than DividendHoldDays.
func (e *Engine) dividendPass() []DividendReport {
	st := e.state
	rate := DividendRate(st.Ledger.Skill)
	var out []DividendReport
	for idx := range st.Instruments {
		inst := &st.Instruments[idx]
		if inst.Held <= 0 {
			continue
		}
		inst.HoldingDays++
		if inst.HoldingDays > DividendHoldDays {
			amount := round2(inst.Value() * rate)
			if amount > 0 {
				st.Ledger.gainCash(amount)
				out = append(out, DividendReport{
					InstrumentID: inst.ID,
					Name:         inst.Name,
					Amount:       amount,
					Rate:         rate,
					HoldingDays:  inst.HoldingDays,
				})
				e.addLog(fmt.Sprintf("[Dividend] %s paid %s (%.1f%%), held %d days.", inst.Name, formatMoney(amount), rate*100, inst.HoldingDays), SeveritySuccess)
			}
		}
	}
	return out
}

// finalizeDay advances the calendar, refills action points and evaluates the
// end of the session.
func (e *Engine) finalizeDay() {
	st := e.state
	l := &st.Ledger
	l.Day++
	if penalty := l.rolloverActionPoints(); penalty > 0 {
		e.addLog(fmt.Sprintf("[Self-criticism] The supervisor demands a written apology, action points -%d.", penalty), SeverityWarning)
	}
	if l.Day > st.Rules.TotalDays {
		assets := e.totalAssets()
		if assets >= st.Rules.TargetAssets {
			e.terminate(OutcomeWin, fmt.Sprintf("Congratulations! %d days are over with total assets %s. You are the dorm tycoon!", st.Rules.TotalDays, formatMoney(assets)))
		} else {
			e.terminate(OutcomeNeutral, fmt.Sprintf("%d days are over with total assets %s. Keep trying!", st.Rules.TotalDays, formatMoney(assets)))
		}
		return
	}
	e.addLog(fmt.Sprintf("=== Day %d ===", l.Day), SeverityInfo)
	e.log.Debug("day advanced", "session", st.SessionID, "day", l.Day)
}

func (e *Engine) terminate(outcome Outcome, msg string) {
	sev := SeverityError
	switch outcome {
	case OutcomeWin:
		sev = SeveritySuccess
	case OutcomeNeutral:
		sev = SeverityInfo
	}
	e.state.Over = true
	e.state.Outcome = outcome
	e.addLog(msg, sev)
	e.log.Info("session over", "session", e.state.SessionID, "outcome", string(outcome), "day", e.state.Ledger.Day)
}

func (e *Engine) closeReport(r DayReport) DayReport {
	r.Over = e.state.Over
	r.Outcome = e.state.Outcome
	return r
}
