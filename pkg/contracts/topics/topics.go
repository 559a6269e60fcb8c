package topics

const (
	// Liquidações
	RoundSettled = "round_settled"
	GameSettled  = "game_settled"
	BetSettled   = "bet_settled"

	// DLQ
	SettlementDLQ = "settlement_dlq"
)
