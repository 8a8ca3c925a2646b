package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/bpgsql/bpgsql"
	"github.com/rs/zerolog"
)

var dsnExample = `DSN="host=10.66.0.1 user=barryp dbname=test"
DSN="host=/tmp/.s.PGSQL.5432 dbname=test"
DSN="service=mydb user=app"`

func main() {
	dsn := os.Getenv("DSN")
	if dsn == "" {
		fmt.Println("please define the env DSN. example:\n" + dsnExample)
		return
	}

	cfg, err := bpgsql.ParseConfig(dsn, nil)
	if err != nil {
		log.Fatal(err)
	}
	cfg.Logger = bpgsql.NewZerologAdapter(zerolog.New(os.Stderr).With().Timestamp().Logger())
	cfg.LogLevel = bpgsql.LogLevelDebug

	cn, err := bpgsql.ConnectConfig(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer cn.Close()

	cur := cn.Cursor()
	if err := cur.Execute("SELECT oid, typname FROM pg_type LIMIT $1", 5); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("backend pid %d, %d rows\n", cn.BackendPID(), cur.RowCount())
	for {
		row, err := cur.FetchOne()
		if err != nil {
			log.Fatal(err)
		}
		if row == nil {
			break
		}
		fmt.Printf("%s\t%s\n", row[0], row[1])
	}

	if _, err := cn.Execute("LISTEN demo"); err != nil {
		log.Fatal(err)
	}
	fmt.Println("waiting 5s for NOTIFY demo ...")
	n, err := cn.WaitForNotification(5 * time.Second)
	if err != nil {
		if kind, ok := bpgsql.KindOf(err); ok && kind == bpgsql.ErrorKindTimeout {
			fmt.Println("no notification")
			return
		}
		log.Fatal(err)
	}
	fmt.Printf("notified on %q by backend %d\n", n.Channel, n.PID)
}
