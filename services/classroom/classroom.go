package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/classware-tech/switchboard/api"
	"github.com/classware-tech/switchboard/core/csql"
	"github.com/classware-tech/switchboard/core/logger"
	"github.com/classware-tech/switchboard/devices"
	"github.com/classware-tech/switchboard/events"
	"github.com/classware-tech/switchboard/hub"
)

// Service holds the configuration for this service
//
// use POSTGRES="host=localhost port=5432 user=postgres password=docker dbname=postgres sslmode=disable"
type Service struct {
	Postgres     string `env:"POSTGRES,optional" description:"the connection string for the Postgres DB; omit to run with the in-memory store"`
	Port         string `env:"PORT,default=3000" description:"the port to listen on"`
	KafkaBrokers string `env:"KAFKA_BROKERS,optional" description:"comma separated Kafka brokers for the event topic"`
	KafkaTopic   string `env:"KAFKA_TOPIC,default=switchboard.events" description:"the Kafka topic for state-change events"`
	Liveness     int    `env:"LIVENESS_WINDOW_SECONDS,default=90" description:"seconds of silence after which a device is presumed offline"`
	Sweep        int    `env:"LIVENESS_SWEEP_SECONDS,default=30" description:"interval of the liveness sweep"`
}

func main() {
	logger.InitLogger(logrus.InfoLevel)

	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}

	var store devices.Store
	if service.Postgres != "" {
		db := csql.OpenWithSchema(service.Postgres, "switchboard")
		defer db.Close()
		store = devices.MustNewSQLStore(db)
	} else {
		log.Println("no POSTGRES configured, using the in-memory store")
		store = devices.NewMemoryStore()
	}

	fanout := events.NewFanout()
	var broadcaster events.Broadcaster = fanout
	if service.KafkaBrokers != "" {
		kafkaBroadcaster := events.NewKafkaBroadcaster(
			strings.Split(service.KafkaBrokers, ","), service.KafkaTopic)
		defer kafkaBroadcaster.Close()
		broadcaster = events.Tee{fanout, kafkaBroadcaster}
	}

	router := mux.NewRouter()
	logger.AddRequestID(router)

	h := hub.MustNewHub(&hub.Builder{
		Store:         store,
		Router:        router,
		Broadcaster:   broadcaster,
		Freshness:     time.Duration(service.Liveness) * time.Second,
		SweepInterval: time.Duration(service.Sweep) * time.Second,
	})

	api.MustNewAPI(&api.Builder{
		Store:  store,
		Hub:    h,
		Router: router,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	handler := handlers.RecoveryHandler()(handlers.CORS(
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
	)(router))

	log.Println("listen on port :" + service.Port)
	go http.ListenAndServe(":"+service.Port, handler)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	<-signalCh
	log.Println("stopped")
}
