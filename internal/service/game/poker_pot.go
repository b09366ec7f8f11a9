package game

import "sort"

// buildPots partitions total contributions into a main pot and side pots at
// each distinct contribution level, grounded on the sorted-levels algorithm
// used by comparable Hold'em pot managers: sort the distinct non-zero
// contribution levels, then for each level carve out the pot formed by
// every remaining contributor giving up to that level, restricted to
// players who contributed at least that much (eligible to win it).
//
// contributions maps userID to total chips put in this hand across all
// streets; folded tracks who is out of contention (their chips stay in the
// pots, but they are never eligible to win them).
func buildPots(contributions map[string]int64, folded map[string]bool) []Pot {
	if len(contributions) == 0 {
		return nil
	}
	levels := make([]int64, 0, len(contributions))
	seen := map[int64]bool{}
	for _, amt := range contributions {
		if amt > 0 && !seen[amt] {
			seen[amt] = true
			levels = append(levels, amt)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var pots []Pot
	var floor int64
	for _, level := range levels {
		amount := int64(0)
		eligible := map[string]bool{}
		for userID, amt := range contributions {
			slice := amt - floor
			if slice <= 0 {
				continue
			}
			take := level - floor
			if slice < take {
				take = slice
			}
			amount += take
			if amt >= level && !folded[userID] {
				eligible[userID] = true
			}
		}
		if amount > 0 && len(eligible) > 0 {
			pots = append(pots, Pot{Amount: amount, Eligible: eligible})
		}
		floor = level
	}
	return pots
}

// awardPots resolves each pot to its winner(s) by comparing only the
// evaluated hands of players eligible for that pot, splitting evenly and
// assigning the odd remainder chip-by-chip to the earliest eligible seat
// after the dealer button, matching table convention for indivisible
// remainders.
func awardPots(pots []Pot, hands map[string]EvaluatedHand, seatOf map[string]int, dealerSeat, tableSize int) map[string]int64 {
	won := map[string]int64{}
	for _, pot := range pots {
		var ids []string
		for id := range pot.Eligible {
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool {
			return seatDistance(seatOf[ids[i]], dealerSeat, tableSize) < seatDistance(seatOf[ids[j]], dealerSeat, tableSize)
		})
		evaluated := make([]EvaluatedHand, len(ids))
		for i, id := range ids {
			evaluated[i] = hands[id]
		}
		winnerIdx := FindWinners(evaluated)
		share := pot.Amount / int64(len(winnerIdx))
		remainder := pot.Amount - share*int64(len(winnerIdx))
		winnerIDs := make([]string, len(winnerIdx))
		for i, idx := range winnerIdx {
			winnerIDs[i] = ids[idx]
		}
		sort.Slice(winnerIDs, func(i, j int) bool {
			return seatDistance(seatOf[winnerIDs[i]], dealerSeat, tableSize) < seatDistance(seatOf[winnerIDs[j]], dealerSeat, tableSize)
		})
		for i, id := range winnerIDs {
			amt := share
			if int64(i) < remainder {
				amt++
			}
			won[id] += amt
		}
	}
	return won
}

func seatDistance(seat, dealerSeat, n int) int {
	if n == 0 {
		return 0
	}
	d := seat - dealerSeat
	if d <= 0 {
		d += n
	}
	return d
}
