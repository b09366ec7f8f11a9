package game

import "sort"

// HandRank classifies a five-card poker hand. Higher is stronger.
type HandRank int

const (
	HighCard HandRank = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (r HandRank) String() string {
	switch r {
	case HighCard:
		return "High Card"
	case OnePair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// EvaluatedHand is the result of evaluating up to 7 cards: the best 5-card
// hand, its rank class, a high-to-low tiebreak vector for same-class
// comparisons, and the five cards that make it up.
type EvaluatedHand struct {
	Rank      HandRank
	Tiebreak  []int
	BestFive  []PokerCard
}

// Compare returns >0 if a beats b, <0 if b beats a, 0 for an exact tie.
func Compare(a, b EvaluatedHand) int {
	if a.Rank != b.Rank {
		return int(a.Rank) - int(b.Rank)
	}
	for i := 0; i < len(a.Tiebreak) && i < len(b.Tiebreak); i++ {
		if a.Tiebreak[i] != b.Tiebreak[i] {
			return a.Tiebreak[i] - b.Tiebreak[i]
		}
	}
	return 0
}

// Evaluate selects the best 5-card hand out of 2-7 cards.
func Evaluate(cards []PokerCard) EvaluatedHand {
	bySuit := make(map[Suit][]PokerCard, 4)
	byValue := make(map[int][]PokerCard, 13)
	for _, c := range cards {
		bySuit[c.Suit] = append(bySuit[c.Suit], c)
		byValue[c.Value] = append(byValue[c.Value], c)
	}

	if sf, ok := straightFlush(bySuit); ok {
		if sf.Tiebreak[0] == 14 {
			sf.Rank = RoyalFlush
		}
		return sf
	}
	if q, ok := fourOfAKind(byValue, cards); ok {
		return q
	}
	if fh, ok := fullHouse(byValue); ok {
		return fh
	}
	if fl, ok := flush(bySuit); ok {
		return fl
	}
	if st, ok := straight(uniqueValues(cards), cards); ok {
		return st
	}
	if tk, ok := threeOfAKind(byValue, cards); ok {
		return tk
	}
	if tp, ok := twoPair(byValue, cards); ok {
		return tp
	}
	if op, ok := onePair(byValue, cards); ok {
		return op
	}
	return highCard(cards)
}

// FindWinners returns the indices into hands sharing the strongest hand.
func FindWinners(hands []EvaluatedHand) []int {
	if len(hands) == 0 {
		return nil
	}
	best := hands[0]
	winners := []int{0}
	for i := 1; i < len(hands); i++ {
		cmp := Compare(hands[i], best)
		if cmp > 0 {
			best = hands[i]
			winners = []int{i}
		} else if cmp == 0 {
			winners = append(winners, i)
		}
	}
	return winners
}

func sortedDesc(vals []int) []int {
	out := append([]int(nil), vals...)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func uniqueValues(cards []PokerCard) []int {
	seen := map[int]bool{}
	var vals []int
	for _, c := range cards {
		if !seen[c.Value] {
			seen[c.Value] = true
			vals = append(vals, c.Value)
		}
	}
	return sortedDesc(vals)
}

func cardsOfValue(cards []PokerCard, v int) []PokerCard {
	var out []PokerCard
	for _, c := range cards {
		if c.Value == v {
			out = append(out, c)
		}
	}
	return out
}

func topKickers(cards []PokerCard, exclude map[int]bool, n int) ([]int, []PokerCard) {
	seen := map[int]PokerCard{}
	for _, c := range cards {
		if exclude[c.Value] {
			continue
		}
		if _, ok := seen[c.Value]; !ok {
			seen[c.Value] = c
		}
	}
	var vals []int
	for v := range seen {
		vals = append(vals, v)
	}
	vals = sortedDesc(vals)
	if len(vals) > n {
		vals = vals[:n]
	}
	out := make([]PokerCard, 0, len(vals))
	for _, v := range vals {
		out = append(out, seen[v])
	}
	return vals, out
}

func straightFlush(bySuit map[Suit][]PokerCard) (EvaluatedHand, bool) {
	for _, suited := range bySuit {
		if len(suited) < 5 {
			continue
		}
		if st, ok := straight(uniqueValues(suited), suited); ok {
			st.Rank = StraightFlush
			return st, true
		}
	}
	return EvaluatedHand{}, false
}

// straight finds the highest straight within vals (sorted desc, unique),
// explicitly including the wheel (A-2-3-4-5, reported high card 5). cards
// supplies the concrete PokerCard values to build BestFive from.
func straight(vals []int, cards []PokerCard) (EvaluatedHand, bool) {
	present := map[int]bool{}
	for _, v := range vals {
		present[v] = true
	}
	// Wheel: A counts low alongside 2,3,4,5.
	tryHigh := func(high int) ([]int, bool) {
		need := []int{high, high - 1, high - 2, high - 3, high - 4}
		for _, v := range need {
			if !present[v] {
				return nil, false
			}
		}
		return need, true
	}
	for high := 14; high >= 6; high-- {
		if seq, ok := tryHigh(high); ok {
			return buildStraight(seq, cards, high), true
		}
	}
	if present[14] && present[2] && present[3] && present[4] && present[5] {
		return buildStraight([]int{5, 4, 3, 2, 14}, cards, 5), true
	}
	return EvaluatedHand{}, false
}

func buildStraight(seq []int, cards []PokerCard, highReported int) EvaluatedHand {
	five := make([]PokerCard, 0, 5)
	for _, v := range seq {
		matches := cardsOfValue(cards, v)
		five = append(five, matches[0])
	}
	return EvaluatedHand{Rank: Straight, Tiebreak: []int{highReported}, BestFive: five}
}

func flush(bySuit map[Suit][]PokerCard) (EvaluatedHand, bool) {
	for _, suited := range bySuit {
		if len(suited) < 5 {
			continue
		}
		sorted := append([]PokerCard(nil), suited...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })
		five := sorted[:5]
		tb := make([]int, 5)
		for i, c := range five {
			tb[i] = c.Value
		}
		return EvaluatedHand{Rank: Flush, Tiebreak: tb, BestFive: five}, true
	}
	return EvaluatedHand{}, false
}

func fourOfAKind(byValue map[int][]PokerCard, cards []PokerCard) (EvaluatedHand, bool) {
	quad := bestNOfAKind(byValue, 4, nil)
	if quad == 0 {
		return EvaluatedHand{}, false
	}
	exclude := map[int]bool{quad: true}
	kickerVals, kickerCards := topKickers(cards, exclude, 1)
	five := append(append([]PokerCard(nil), byValue[quad]...), kickerCards...)
	tb := append([]int{quad}, kickerVals...)
	return EvaluatedHand{Rank: FourOfAKind, Tiebreak: tb, BestFive: five}, true
}

func fullHouse(byValue map[int][]PokerCard) (EvaluatedHand, bool) {
	trips := bestNOfAKind(byValue, 3, nil)
	if trips == 0 {
		return EvaluatedHand{}, false
	}
	// A second trips set may serve as the pair, using its top two cards;
	// prefer it over a genuine pair per §4.B.
	secondTrips := bestNOfAKind(byValue, 3, map[int]bool{trips: true})
	pairVal := bestNOfAKind(byValue, 2, map[int]bool{trips: true})
	if secondTrips != 0 && secondTrips > pairVal {
		pairVal = secondTrips
	}
	if pairVal == 0 {
		return EvaluatedHand{}, false
	}
	pairCards := byValue[pairVal]
	if len(pairCards) > 2 {
		pairCards = pairCards[:2]
	}
	five := append(append([]PokerCard(nil), byValue[trips]...), pairCards...)
	return EvaluatedHand{Rank: FullHouse, Tiebreak: []int{trips, pairVal}, BestFive: five}, true
}

func threeOfAKind(byValue map[int][]PokerCard, cards []PokerCard) (EvaluatedHand, bool) {
	trips := bestNOfAKind(byValue, 3, nil)
	if trips == 0 {
		return EvaluatedHand{}, false
	}
	kickerVals, kickerCards := topKickers(cards, map[int]bool{trips: true}, 2)
	five := append(append([]PokerCard(nil), byValue[trips]...), kickerCards...)
	tb := append([]int{trips}, kickerVals...)
	return EvaluatedHand{Rank: ThreeOfAKind, Tiebreak: tb, BestFive: five}, true
}

func twoPair(byValue map[int][]PokerCard, cards []PokerCard) (EvaluatedHand, bool) {
	high := bestNOfAKind(byValue, 2, nil)
	if high == 0 {
		return EvaluatedHand{}, false
	}
	low := bestNOfAKind(byValue, 2, map[int]bool{high: true})
	if low == 0 {
		return EvaluatedHand{}, false
	}
	kickerVals, kickerCards := topKickers(cards, map[int]bool{high: true, low: true}, 1)
	five := append(append(append([]PokerCard(nil), byValue[high]...), byValue[low]...), kickerCards...)
	tb := append([]int{high, low}, kickerVals...)
	return EvaluatedHand{Rank: TwoPair, Tiebreak: tb, BestFive: five}, true
}

func onePair(byValue map[int][]PokerCard, cards []PokerCard) (EvaluatedHand, bool) {
	pair := bestNOfAKind(byValue, 2, nil)
	if pair == 0 {
		return EvaluatedHand{}, false
	}
	kickerVals, kickerCards := topKickers(cards, map[int]bool{pair: true}, 3)
	five := append(append([]PokerCard(nil), byValue[pair]...), kickerCards...)
	tb := append([]int{pair}, kickerVals...)
	return EvaluatedHand{Rank: OnePair, Tiebreak: tb, BestFive: five}, true
}

func highCard(cards []PokerCard) EvaluatedHand {
	vals, five := topKickers(cards, nil, 5)
	return EvaluatedHand{Rank: HighCard, Tiebreak: vals, BestFive: five}
}

// bestNOfAKind returns the highest value with exactly n cards, skipping any
// value present in exclude, or 0 if none match.
func bestNOfAKind(byValue map[int][]PokerCard, n int, exclude map[int]bool) int {
	best := 0
	for v, cs := range byValue {
		if exclude[v] {
			continue
		}
		if len(cs) == n && v > best {
			best = v
		}
	}
	return best
}
