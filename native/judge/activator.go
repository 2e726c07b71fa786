package judge

// Activator deploys a revealed resolver payload and returns the address that
// should receive the escrowed balance. Implementations are external and
// fallible from the engine's point of view: any error aborts the reveal with
// no state change.
type Activator interface {
	Activate(judgeID [32]byte, payload []byte) ([20]byte, error)
}

// ActivatorFunc adapts a plain function to the Activator interface.
type ActivatorFunc func(judgeID [32]byte, payload []byte) ([20]byte, error)

func (f ActivatorFunc) Activate(judgeID [32]byte, payload []byte) ([20]byte, error) {
	return f(judgeID, payload)
}
