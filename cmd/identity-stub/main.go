// Command identity-stub runs the in-memory identity API for local
// development. Verification codes are printed to the server log.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dukan.org/internal/obs"
	"dukan.org/internal/routing"
	"dukan.org/internal/stubid"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	obs.Init()

	srv := stubid.New()
	seed := []struct{ name, email, role, password string }{
		{"Aidos Bekov", "owner@dukan.local", routing.RoleOwner, "owner-pass-1"},
		{"Dana Serik", "admin@dukan.local", routing.RoleAdmin, "admin-pass-1"},
		{"Marat Ali", "staff@dukan.local", routing.RoleStaff, "staff-pass-1"},
		{"Gulnar Omar", "supplier@dukan.local", routing.RoleSupplier, "supplier-pass-1"},
		{"Timur Zhan", "customer@dukan.local", routing.RoleCustomer, "customer-pass-1"},
	}
	for _, u := range seed {
		if err := srv.AddUser(u.name, u.email, u.role, u.password); err != nil {
			log.Fatalf("seed %s: %v", u.email, err)
		}
	}

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting dukan identity stub on %s", *addr)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	log.Println("Stopped")
}
