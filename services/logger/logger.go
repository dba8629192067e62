package logsvc

import (
	"sync"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/user"
)

// loggers names
const (
	API   = "API"
	DB    = "DB"
	ADMIN = "ADMIN"
	JOBS  = "JOBS"
)

var rollbarInit sync.Once

// Logger writes structured logs with zap and reports them to rollbar when enabled.
type Logger struct {
	sugar  *zap.SugaredLogger
	remote bool
}

var _ core.Logger = (*Logger)(nil)

// New creates the logger `name`. Remote reporting is enabled outside of debug mode when a rollbar token is set.
func New(name string, conf *core.Config) (*Logger, error) {
	rollbarInit.Do(func() {
		rollbar.SetToken(conf.RollbarToken)
		rollbar.SetEnvironment(conf.Env)
		rollbar.SetServerHost(conf.Server.Host)
		rollbar.SetCodeVersion(conf.Build)
		rollbar.SetStackTracer(errors.StackTracer)
		rollbar.SetEnabled(conf.RollbarToken != "" && !conf.Debug)
	})

	var (
		zl  *zap.Logger
		err error
	)
	if conf.Debug {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return &Logger{
		sugar:  zl.Named(name).Sugar().With("app", conf.AppName, "build", conf.Build),
		remote: conf.RollbarToken != "" && !conf.Debug,
	}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// Sync flushes buffered logs and waits for pending rollbar reports.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
	if l.remote {
		rollbar.Wait()
	}
}

// fields splits `args` into zap key-values and rollbar args.
// expected args: error, map[string]interface{}, user.User
func (l *Logger) fields(msg string, args []interface{}) (kv []interface{}, remote []interface{}) {
	var usr *user.User
	remote = append(remote, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if usr == nil {
				usr = &a
				kv = append(kv, "user", a.Username)
			}
			continue
		case error:
			kv = append(kv, "error", a)
		case map[string]interface{}:
			for k, v := range a {
				kv = append(kv, k, v)
			}
		default:
			kv = append(kv, "extra", a)
		}
		remote = append(remote, arg)
	}

	if l.remote {
		if usr != nil {
			rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
		} else {
			rollbar.ClearPerson()
		}
	}
	return kv, remote
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	kv, remote := l.fields(msg, args)
	l.sugar.Debugw(msg, kv...)
	if l.remote {
		rollbar.Debug(remote...)
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	kv, remote := l.fields(msg, args)
	l.sugar.Infow(msg, kv...)
	if l.remote {
		rollbar.Info(remote...)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	kv, remote := l.fields(msg, args)
	l.sugar.Warnw(msg, kv...)
	if l.remote {
		rollbar.Warning(remote...)
	}
}

func (l *Logger) Error(msg string, args ...interface{}) {
	kv, remote := l.fields(msg, args)
	l.sugar.Errorw(msg, kv...)
	if l.remote {
		rollbar.Error(remote...)
	}
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	kv, remote := l.fields(msg, args)
	if l.remote {
		rollbar.Critical(remote...)
		rollbar.Wait()
	}
	l.sugar.Fatalw(msg, kv...)
}
