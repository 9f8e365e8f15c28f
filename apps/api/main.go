package main

import (
	"context"
	stdlog "log"
	"os"

	echoapi "github.com/trezcool/soko/apps/api/echo"
	"github.com/trezcool/soko/core"
	"github.com/trezcool/soko/core/course"
	"github.com/trezcool/soko/core/progress"
	"github.com/trezcool/soko/core/purchase"
	"github.com/trezcool/soko/core/user"
	emailsvc "github.com/trezcool/soko/services/email"
	identitysvc "github.com/trezcool/soko/services/identity"
	logsvc "github.com/trezcool/soko/services/logger"
	mediasvc "github.com/trezcool/soko/services/media"
	paymentsvc "github.com/trezcool/soko/services/payment"
	mongodb "github.com/trezcool/soko/storage/mongo"
)

func main() {
	conf := core.NewConfig()

	std := stdlog.New(os.Stdout, conf.AppName+" ", stdlog.LstdFlags|stdlog.Lshortfile)
	var logger core.Logger
	if conf.Debug {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up the document store
	ctx := context.Background()
	db, err := mongodb.Open(ctx, conf)
	if err != nil {
		logger.Fatal("opening document store", err)
	}
	defer func() {
		if err := mongodb.Close(ctx, db); err != nil {
			logger.Error("closing document store", err)
		}
	}()

	userRepo := mongodb.NewUserRepository(db)
	courseRepo := mongodb.NewCourseRepository(db)
	purchaseRepo := mongodb.NewPurchaseRepository(db)
	progressRepo := mongodb.NewProgressRepository(db)

	// set up providers
	identity, err := identitysvc.NewService(conf)
	if err != nil {
		logger.Fatal("configuring identity provider", err)
	}
	payments := paymentsvc.NewService(conf)
	media, err := mediasvc.NewService(conf)
	if err != nil {
		logger.Fatal("configuring media host", err)
	}
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// set up services
	userSvc := user.NewService(userRepo, identity, logger)
	courseSvc := course.NewService(courseRepo, media)
	purchaseSvc := purchase.NewService(purchaseRepo, courseRepo, userRepo, payments, mailSvc, logger, conf)
	progressSvc := progress.NewService(progressRepo, courseRepo)

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        userSvc,
		CourseSvc:      courseSvc,
		PurchaseSvc:    purchaseSvc,
		ProgressSvc:    progressSvc,
		Identity:       identity,
		IdentityEvents: identity,
		PaymentEvents:  payments,
	})
	if err = app.Start(); err != nil {
		logger.Fatal("server stopped", err)
	}
}
