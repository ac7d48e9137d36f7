package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/campus/apps/api/echo"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/announcement"
	"github.com/trezcool/campus/core/complaint"
	"github.com/trezcool/campus/core/event"
	"github.com/trezcool/campus/core/lostfound"
	"github.com/trezcool/campus/core/poll"
	"github.com/trezcool/campus/core/skill"
	"github.com/trezcool/campus/core/timetable"
	"github.com/trezcool/campus/core/user"
	emailsvc "github.com/trezcool/campus/services/email"
	"github.com/trezcool/campus/services/filestore"
	logsvc "github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/services/push"
	"github.com/trezcool/campus/services/realtime"
	"github.com/trezcool/campus/storage/database"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
	sqlxrepos "github.com/trezcool/campus/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// CloseDB releases the storage; it is a no-op for the in-memory engine.
	CloseDB func() error

	// Repositories are provided together, from the configured DB engine.
	Repositories struct {
		dig.Out
		Close         CloseDB
		Tx            core.Transactor
		Users         user.Repository
		Announcements announcement.Repository
		Items         lostfound.Repository
		Timetable     timetable.Repository
		Complaints    complaint.Repository
		Polls         poll.Repository
		Forms         poll.FormRepository
		Events        event.Repository
		Courses       skill.Repository
	}

	serverParams struct {
		dig.In
		Conf            *core.Config
		Logger          core.Logger
		Validate        *validator.Validate
		Translator      ut.Translator
		UserSvc         user.ServiceInterface
		AnnouncementSvc *announcement.Service
		LostFoundSvc    *lostfound.Service
		TimetableSvc    *timetable.Service
		ComplaintSvc    *complaint.Service
		PollSvc         *poll.Service
		FormSvc         *poll.FormService
		EventSvc        *event.Service
		SkillSvc        *skill.Service
		Hub             *realtime.Hub
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	if conf.Database.Engine == "inmem" {
		loggerParam.Logger.Warn("using the in-memory database: data is lost on restart")
		db := inmemdb.Open()
		return Repositories{
			Close:         func() error { return nil },
			Tx:            inmemdb.NewTransactor(db),
			Users:         inmemdb.NewUserRepository(db),
			Announcements: inmemdb.NewAnnouncementRepository(db),
			Items:         inmemdb.NewLostFoundRepository(db),
			Timetable:     inmemdb.NewTimetableRepository(db),
			Complaints:    inmemdb.NewComplaintRepository(db),
			Polls:         inmemdb.NewPollRepository(db),
			Forms:         inmemdb.NewFormRepository(db),
			Events:        inmemdb.NewEventRepository(db),
			Courses:       inmemdb.NewSkillRepository(db),
		}
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	return Repositories{
		Close:         db.Close,
		Tx:            sqlxrepos.NewTransactor(db),
		Users:         sqlxrepos.NewUserRepository(db),
		Announcements: sqlxrepos.NewAnnouncementRepository(db),
		Items:         sqlxrepos.NewLostFoundRepository(db),
		Timetable:     sqlxrepos.NewTimetableRepository(db),
		Complaints:    sqlxrepos.NewComplaintRepository(db),
		Polls:         sqlxrepos.NewPollRepository(db),
		Forms:         sqlxrepos.NewFormRepository(db),
		Events:        sqlxrepos.NewEventRepository(db),
		Courses:       sqlxrepos.NewSkillRepository(db),
	}
}

// newNotifier fans notifications out to websocket clients and, when configured, to FCM topics.
func newNotifier(conf *core.Config, logger core.Logger, hub *realtime.Hub) core.Notifier {
	fcm, err := push.NewFCMNotifier(context.Background(), conf, logger)
	if err != nil {
		logger.Error("setting up FCM, push notifications disabled", err)
		return hub
	}
	return core.Notifiers{hub, fcm}
}

func newFileStore(conf *core.Config, logger core.Logger) core.FileStore {
	store, err := filestore.New(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file store: %v", err), err)
	}
	return store
}

func newUserGetter(svc user.ServiceInterface) complaint.UserGetter {
	return svc
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Deps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		Validate:        p.Validate,
		Translator:      p.Translator,
		UserSvc:         p.UserSvc,
		AnnouncementSvc: p.AnnouncementSvc,
		LostFoundSvc:    p.LostFoundSvc,
		TimetableSvc:    p.TimetableSvc,
		ComplaintSvc:    p.ComplaintSvc,
		PollSvc:         p.PollSvc,
		FormSvc:         p.FormSvc,
		EventSvc:        p.EventSvc,
		SkillSvc:        p.SkillSvc,
		Hub:             p.Hub,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(newFileStore))
	must(c.Provide(realtime.NewHub))
	must(c.Provide(newNotifier))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))

	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(newUserGetter))
	must(c.Provide(announcement.NewService))
	must(c.Provide(lostfound.NewService))
	must(c.Provide(timetable.NewService))
	must(c.Provide(complaint.NewService))
	must(c.Provide(poll.NewService))
	must(c.Provide(poll.NewFormService))
	must(c.Provide(event.NewService))
	must(c.Provide(skill.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
