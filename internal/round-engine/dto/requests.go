package dto

type CrashRoundRequest struct {
	Multiplier *float64 `json:"multiplier,omitempty"` // override do admin, opcional
}

type ChangeRoundOutcomeRequest struct {
	NewMultiplier float64 `json:"new_multiplier"`
}

type PlaceRoundBetRequest struct {
	UserID            string   `json:"userId"`
	StakeCents        int64    `json:"stake_cents"`
	CashoutMultiplier *float64 `json:"cashout_multiplier,omitempty"`
}

type CreateGameRequest struct {
	Player1Name      string  `json:"player1Name"`
	Player2Name      string  `json:"player2Name"`
	PayoutMultiplier float64 `json:"payout_multiplier"`
}

type PlaceDiceBetRequest struct {
	UserID     string `json:"userId"`
	Side       string `json:"side"` // "player1" | "player2"
	StakeCents int64  `json:"stake_cents"`
}

type SelectWinnerRequest struct {
	Winner         *string `json:"winner,omitempty"` // vazio confirma o auto-selecionado
	DiceResult     *string `json:"diceResult,omitempty"`
	AdminSetResult bool    `json:"adminSetResult"`
}

type ChangeOutcomeRequest struct {
	NewWinner     string  `json:"newWinner"`
	NewDiceResult *string `json:"newDiceResult,omitempty"`
}

type PlaceSportsBetRequest struct {
	UserID     string  `json:"userId"`
	EventID    string  `json:"eventId"`
	Market     string  `json:"market"`
	Selection  string  `json:"selection"`
	StakeCents int64   `json:"stake_cents"`
	OddValue   float64 `json:"odd_value"`
}

type SettleBetRequest struct {
	Status         string `json:"status"` // "win" | "loss" | "void"
	WinAmountCents *int64 `json:"win_amount_cents,omitempty"`
}

type BulkSettleRequest struct {
	BetIDs []string `json:"betIds"`
	Status string   `json:"status"`
}

type DepositRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref,omitempty"`
}
