package voting

// Tally counts votes per decision.
type Tally struct {
	Positive   int
	Negative   int
	Neutral    int
	Abstention int
}

func (t *Tally) Add(d Decision) {
	switch d {
	case DecisionPositive:
		t.Positive++
	case DecisionNegative:
		t.Negative++
	case DecisionNeutral:
		t.Neutral++
	case DecisionAbstention:
		t.Abstention++
	}
}

func (t Tally) Total() int {
	return t.Positive + t.Negative + t.Neutral + t.Abstention
}

// Result is the decision with a strict plurality. Ties for first place
// resolve to NEUTRAL and an empty tally to EMPTY.
func (t Tally) Result() Decision {
	if t.Total() == 0 {
		return DecisionEmpty
	}
	counts := []struct {
		d Decision
		n int
	}{
		{DecisionPositive, t.Positive},
		{DecisionNegative, t.Negative},
		{DecisionNeutral, t.Neutral},
		{DecisionAbstention, t.Abstention},
	}
	best, tied := counts[0], false
	for _, c := range counts[1:] {
		switch {
		case c.n > best.n:
			best, tied = c, false
		case c.n == best.n:
			tied = true
		}
	}
	if tied {
		return DecisionNeutral
	}
	return best.d
}

// TallyVotes counts a vote log.
func TallyVotes(votes []Vote) Tally {
	var t Tally
	for _, v := range votes {
		t.Add(v.Decision)
	}
	return t
}
