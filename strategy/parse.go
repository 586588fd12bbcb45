package strategy

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	defaultBreakoutLookback = 20
	defaultPullbackLookback = 20
	defaultSwingLookback    = 5
	defaultBreakEvenR       = 1.0
	defaultMALookback       = 50
	defaultATRLookback      = 14
	defaultATRMultiple      = 2.0
	defaultVolumeMult       = 1.2
	defaultVolumeLookback   = 14
	defaultMinBody          = 0.5
	defaultRSILookback      = 14
	defaultRSIOversold      = 30
	defaultBandLookback     = 20
	defaultBandDev          = 2.0
)

var (
	reBars = regexp.MustCompile(`(\d+)[\s-]*(?:bar|day|period|session|candle)s?\b`)
	rePct  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

	reAtStart  = regexp.MustCompile(`buy[\s-]*(?:and|&)[\s-]*hold|buy (?:at|on) (?:the )?(?:first |market )?open|enter (?:long )?immediately|enter (?:long )?at (?:the )?(?:first )?open|at the start`)
	reBreakout = regexp.MustCompile(`break(?:s|ing)?[\s-]*(?:out|above|over)`)
	rePrevDay  = regexp.MustCompile(`previous day|prior day|yesterday`)
	rePullback = regexp.MustCompile(`pull[\s-]*back|\bdip\b|retrac`)
	reMA       = regexp.MustCompile(`moving[\s-]*average|\b(?:sma|ema)\b`)
	reMAPeriod = regexp.MustCompile(`(\d+)[\s-]*(?:(?:bar|day|period|session)s?[\s-]*)?(?:simple |exponential )?(?:moving[\s-]*average|sma|ema)\b`)
	reEMA      = regexp.MustCompile(`exponential|\bema\b`)

	reReversal = regexp.MustCompile(`oversold|\brsi\b|bollinger|reversal`)
	reRSIBelow = regexp.MustCompile(`\brsi\b(?:\s*\(\s*\d+\s*\))?\s*(?:is\s+|drops\s+|falls\s+)?(?:below|under|<)\s*(\d+(?:\.\d+)?)`)
	reRSIBars  = regexp.MustCompile(`(\d+)[\s-]*(?:bar|day|period)s?\s+rsi\b|\brsi\s*\(\s*(\d+)\s*\)`)
	reBandBars = regexp.MustCompile(`(\d+)[\s-]*(?:bar|day|period)s?\s+bollinger|bollinger[\s-]*bands?\s*\(\s*(\d+)`)
	reBandDev  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:σ|sigma|std|standard dev)`)
	reVolume   = regexp.MustCompile(`\bvolume\b`)
	reVolMult  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:x|times)\s*(?:the\s+)?(?:\d+[\s-]*(?:bar|day|period|session)s?\s+)?(?:average\s+|avg\s+|mean\s+)?volume|volume.{0,32}?(\d+(?:\.\d+)?)\s*(?:x\b|times)`)
	reVolBars  = regexp.MustCompile(`(\d+)[\s-]*(?:bar|day|period|session)s?\s+(?:average\s+|avg\s+|mean\s+)?volume|volume.{0,32}?(\d+)[\s-]*(?:bar|day|period|session)s?\s+(?:average|avg|mean)`)
	reBody     = regexp.MustCompile(`\bbody\b|full[\s-]*bodied|strong candle`)
	reBodyPct  = regexp.MustCompile(`body\D{0,24}?(\d+(?:\.\d+)?)\s*%`)

	reRiskFrac = regexp.MustCompile(`risk(?:ing)?\D{0,24}?(\d+(?:\.\d+)?)\s*%`)
	reFull     = regexp.MustCompile(`all[\s-]*in\b|full (?:position|notional|capital|allocation|size)|entire (?:capital|account|portfolio)`)

	reTrail   = regexp.MustCompile(`trail\w*\D{0,24}?(\d+(?:\.\d+)?)\s*%|(\d+(?:\.\d+)?)\s*%\s*trail`)
	reStopPct = regexp.MustCompile(`stop(?:[\s-]*loss)?\D{0,24}?(\d+(?:\.\d+)?)\s*%|(\d+(?:\.\d+)?)\s*%\s*(?:stop|below entry)`)
	reSwing   = regexp.MustCompile(`swing[\s-]*low|recent low|prior low|previous low|support`)
	reATR     = regexp.MustCompile(`\batr\b|average true range`)
	reATRMult = regexp.MustCompile(`\b(\d+(?:\.\d+)?)(?:\s*(?:x|times)\s*|\s+)(?:the\s+)?(?:\d+[\s-]*(?:bar|day|period)s?\s+)?(?:atr\b|average true range)`)
	reATRBars = regexp.MustCompile(`(\d+)[\s-]*(?:bar|day|period)s?\s+(?:atr\b|average true range)|(?:atr|average true range)\s*\(\s*(\d+)\s*\)`)

	reTargetR   = regexp.MustCompile(`(?:profit|target|take|exit|reward)\D{0,24}?(\d+(?:\.\d+)?)\s*r\b|(\d+(?:\.\d+)?)\s*:\s*1\b`)
	reTargetPct = regexp.MustCompile(`(?:profit|target|gain)\D{0,24}?(\d+(?:\.\d+)?)\s*%|(\d+(?:\.\d+)?)\s*%\s*(?:gain|profit|target|above entry)`)
	reMaxHold   = regexp.MustCompile(`(?:after|within|for|hold(?:ing)?(?: period)?(?: of)?(?: up to| at most| max(?:imum)?)?)\s+(\d+)\s*(?:trading\s+)?(?:bars?|days?|sessions?|candles?|periods?)\b`)
	reBreakEven = regexp.MustCompile(`break[\s-]*even`)
	reRMultiple = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*r\b`)
)

// Parse validates d and resolves its text fields into Rules. Fields that
// yield nothing are listed in Rules.Unresolved and do not affect simulation.
func Parse(d Descriptor) (Rules, error) {
	if err := d.Validate(); err != nil {
		return Rules{}, err
	}

	entry := normalize(d.EntryCriteria)
	sizing := normalize(d.PositionSizing)
	risk := normalize(d.RiskManagement)
	exit := normalize(d.ExitStrategy)
	mgmt := normalize(d.TradeManagement)

	var (
		r        Rules
		resolved = map[string]bool{}
	)

	r.Entry = parseEntry(entry)
	resolved["entry_criteria"] = r.Entry.Kind != EntryUnresolved

	r.Sizing = parseSizing(sizing)
	resolved["position_sizing"] = r.Sizing.Kind != SizingUnparseable

	if s, ok := parseStop(risk); ok {
		r.Stop = s
		resolved["risk_management"] = true
	} else if s, ok := parseStop(exit); ok {
		r.Stop = s
		resolved["exit_strategy"] = true
	}

	if t, ok := parseTarget(exit); ok {
		r.Target = t
		resolved["exit_strategy"] = true
	} else if t, ok := parseTarget(risk); ok {
		r.Target = t
		resolved["risk_management"] = true
	}

	if n, ok := parseMaxHold(exit); ok {
		r.MaxHoldBars = n
		resolved["exit_strategy"] = true
	} else if n, ok := parseMaxHold(risk); ok {
		r.MaxHoldBars = n
		resolved["risk_management"] = true
	}

	if be, ok := parseBreakEven(mgmt); ok {
		r.BreakEvenR = be
		resolved["trade_management"] = true
	}
	if p, ok := parseTrail(mgmt); ok {
		r.TrailPct = p
		resolved["trade_management"] = true
	} else if p, ok := parseTrail(risk); ok {
		r.TrailPct = p
		resolved["risk_management"] = true
	}

	for _, f := range []string{"entry_criteria", "position_sizing", "risk_management", "exit_strategy", "trade_management"} {
		if !resolved[f] {
			r.Unresolved = append(r.Unresolved, f)
		}
	}
	return r, nil
}

func parseEntry(s string) EntryRule {
	switch {
	case reAtStart.MatchString(s):
		return EntryRule{Kind: EntryAtStart}

	case reReversal.MatchString(s):
		r := EntryRule{
			Kind:         EntryReversal,
			Lookback:     defaultRSILookback,
			RSIBelow:     defaultRSIOversold,
			BandLookback: defaultBandLookback,
			BandDev:      defaultBandDev,
			MinBody:      defaultMinBody,
		}
		if v, ok := firstInt(reRSIBars, s); ok && v > 0 {
			r.Lookback = v
		}
		if v, ok := firstFloat(reRSIBelow, s); ok && v > 0 && v < 100 {
			r.RSIBelow = v
		}
		if v, ok := firstInt(reBandBars, s); ok && v > 1 {
			r.BandLookback = v
		}
		if v, ok := firstFloat(reBandDev, s); ok && v > 0 {
			r.BandDev = v
		}
		if v, ok := bodyPct(s); ok {
			r.MinBody = v
		}
		return r

	case reMA.MatchString(s) && !rePullback.MatchString(s):
		n := defaultMALookback
		if v, ok := firstInt(reMAPeriod, s); ok && v > 0 {
			n = v
		}
		return EntryRule{Kind: EntryMovingAverage, Lookback: n, Exponential: reEMA.MatchString(s)}

	case reBreakout.MatchString(s):
		r := EntryRule{Kind: EntryBreakout, Lookback: defaultBreakoutLookback}
		if rePrevDay.MatchString(s) {
			r.Lookback = 1
		}
		if v, ok := firstInt(reBars, reVolBars.ReplaceAllString(s, " ")); ok && v > 0 {
			r.Lookback = v
		}
		if reVolume.MatchString(s) {
			r.VolumeMult, r.VolumeLookback = defaultVolumeMult, defaultVolumeLookback
			if v, ok := firstFloat(reVolMult, s); ok && v > 0 {
				r.VolumeMult = v
			}
			if v, ok := firstInt(reVolBars, s); ok && v > 0 {
				r.VolumeLookback = v
			}
		}
		if reBody.MatchString(s) {
			r.MinBody = defaultMinBody
			if v, ok := bodyPct(s); ok {
				r.MinBody = v
			}
		}
		return r

	case rePullback.MatchString(s):
		pct, ok := firstFloat(rePct, s)
		if !ok || pct <= 0 || pct >= 100 {
			return EntryRule{}
		}
		n := defaultPullbackLookback
		if v, ok := firstInt(reBars, s); ok && v > 0 {
			n = v
		}
		return EntryRule{Kind: EntryPullback, Pct: pct / 100, Lookback: n}
	}
	return EntryRule{}
}

func bodyPct(s string) (float64, bool) {
	v, ok := firstFloat(reBodyPct, s)
	if !ok || v <= 0 || v > 100 {
		return 0, false
	}
	return v / 100, true
}

func parseSizing(s string) SizingRule {
	if v, ok := firstFloat(reRiskFrac, s); ok {
		if v > 0 && v <= 100 {
			return SizingRule{Kind: SizingRiskFraction, Fraction: v / 100}
		}
		return SizingRule{}
	}
	if reFull.MatchString(s) {
		return SizingRule{Kind: SizingFullNotional, Fraction: 1}
	}
	if v, ok := firstFloat(rePct, s); ok {
		switch {
		case v == 100:
			return SizingRule{Kind: SizingFullNotional, Fraction: 1}
		case v > 0 && v < 100:
			return SizingRule{Kind: SizingFixedFraction, Fraction: v / 100}
		}
	}
	return SizingRule{}
}

func parseStop(s string) (StopRule, bool) {
	if reATR.MatchString(s) {
		r := StopRule{Kind: StopATR, Lookback: defaultATRLookback, Multiple: defaultATRMultiple}
		if v, ok := firstInt(reATRBars, s); ok && v > 0 {
			r.Lookback = v
		}
		if v, ok := firstFloat(reATRMult, s); ok && v > 0 {
			r.Multiple = v
		}
		return r, true
	}
	if !strings.Contains(s, "trail") {
		if v, ok := firstFloat(reStopPct, s); ok && v > 0 && v < 100 {
			return StopRule{Kind: StopPercent, Pct: v / 100}, true
		}
	}
	if reSwing.MatchString(s) {
		n := defaultSwingLookback
		if v, ok := firstInt(reBars, s); ok && v > 0 {
			n = v
		}
		return StopRule{Kind: StopSwingLow, Lookback: n}, true
	}
	return StopRule{}, false
}

func parseTarget(s string) (TargetRule, bool) {
	if v, ok := firstFloat(reTargetR, s); ok && v > 0 {
		return TargetRule{Kind: TargetR, Value: v}, true
	}
	if v, ok := firstFloat(reTargetPct, s); ok && v > 0 {
		return TargetRule{Kind: TargetPercent, Value: v / 100}, true
	}
	return TargetRule{}, false
}

func parseMaxHold(s string) (int, bool) {
	v, ok := firstInt(reMaxHold, s)
	return v, ok && v > 0
}

func parseBreakEven(s string) (float64, bool) {
	if !reBreakEven.MatchString(s) {
		return 0, false
	}
	if v, ok := firstFloat(reRMultiple, s); ok && v > 0 {
		return v, true
	}
	return defaultBreakEvenR, true
}

func parseTrail(s string) (float64, bool) {
	v, ok := firstFloat(reTrail, s)
	if !ok || v <= 0 || v >= 100 {
		return 0, false
	}
	return v / 100, true
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// firstFloat returns the first non-empty capture group of the first match.
func firstFloat(re *regexp.Regexp, s string) (float64, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	for _, g := range m[1:] {
		if g == "" {
			continue
		}
		v, err := strconv.ParseFloat(g, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

func firstInt(re *regexp.Regexp, s string) (int, bool) {
	v, ok := firstFloat(re, s)
	if !ok || v != float64(int(v)) {
		return 0, false
	}
	return int(v), true
}
