package sales

type Status string

const (
	StatusBuilding        Status = "BUILDING"
	StatusAwaitingPayment Status = "AWAITING_PAYMENT"
	StatusCommitting      Status = "COMMITTING"
	StatusSettled         Status = "SETTLED"
	StatusFailed          Status = "FAILED"
)

var validNext = map[Status]map[Status]bool{
	StatusBuilding:        {StatusAwaitingPayment: true},
	StatusAwaitingPayment: {StatusCommitting: true, StatusBuilding: true},
	StatusCommitting:      {StatusSettled: true, StatusFailed: true},
	StatusSettled:         {StatusBuilding: true},
	StatusFailed:          {StatusAwaitingPayment: true, StatusBuilding: true},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
