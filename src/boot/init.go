package boot

import (
	"log"
	"os"
	"rbs/src/common"
	"rbs/src/db"
	"rbs/src/lib"
	"rbs/src/models"
	"strconv"
	"time"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.Table{},
		&models.Reservation{},
		&models.ReservationSetting{},
		&models.ProcessedWebhookEvent{},
		&models.Order{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// InitScheduler starts the background reaper that sweeps stale tentative
// reservations. Expiry is also enforced lazily at read time, so the reaper
// is opt-in housekeeping that keeps tables from appearing held.
func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	enabled, err := strconv.ParseBool(os.Getenv("RESERVATION_REAPER"))
	if err == nil && enabled {
		id, err := lib.CreateCronJob(common.ExpireStaleTentative, time.Minute)
		if err != nil {
			log.Printf("Error scheduling reaper job: %s\n", err.Error())
		} else {
			log.Printf("Reaper job ID: %s\n", *id)
		}
	}
	jobsWaitingInQueue := len(sched.Jobs())
	log.Println("Jobs in queue:", jobsWaitingInQueue)
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while shutting stopping Scheduler. Check logs for info")
		return
	}
}
