package appcontext

const (
	EnvServer Env = iota
	EnvCLI
)

// Env tells the fx graph which entrypoint is running it.
type Env int

func (e Env) String() string {
	switch e {
	case EnvServer:
		return "server"
	case EnvCLI:
		return "cli"
	default:
		return "unknown"
	}
}

type Ctx struct {
	Env Env
}

func Declare(env Env) Ctx {
	return Ctx{
		Env: env,
	}
}
