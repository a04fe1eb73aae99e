package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand"
)

// writeVariant writes the result file content of variant v: a status
// report, the outage roster, base case and post-contingency branch flows,
// losses and one topology action per outage.
func writeVariant(w io.Writer, v int, cfg Config, rng *rand.Rand) error {
	bw := bufio.NewWriter(w)
	line := func(format string, args ...any) {
		fmt.Fprintf(bw, format+"\n", args...)
	}
	hour := float64(v % 24)
	load := 1 + 0.3*math.Sin(2*math.Pi*hour/24)

	line("C1 ;COMPTE RENDU;CODE;")
	line("C1 ;;0;")
	if cfg.Outages > 0 {
		line("C4 ;INCIDENTS;NUM;TYPE;NOM;")
		for o := 1; o <= cfg.Outages; o++ {
			line("C4 ;;%d;1;O%d;", o, o)
		}
	}
	line("R3 ;PAR LIGNE;NOM;TRANSIT;")
	flows := make([]float64, cfg.Branches)
	for b := range flows {
		flows[b] = math.Round((100*load*float64(b+1)+rng.NormFloat64()*5)*10) / 10
		line("R3 ;;L%d;%.1f;", b+1, flows[b])
	}
	if cfg.Outages > 0 {
		line("R3C ;PAR LIGNE;NOM;INCIDENT;TRANSIT;")
		for b, f := range flows {
			for o := 1; o <= cfg.Outages; o++ {
				line("R3C ;;L%d;%d;%.1f;", b+1, o, f*(1+0.1*float64(o)))
			}
		}
	}
	line("R8 ;PERTES;VALEUR;")
	line("R8 ;;%.2f;", 2.5*load*load)
	if cfg.Outages > 0 {
		line("R10;INCIDENT;NOM;NUM;ACTION;")
		for o := 1; o <= cfg.Outages; o++ {
			line("R10;;O%d;%d;OPEN_L%d;", o, o, (o-1)%cfg.Branches+1)
		}
	}
	return bw.Flush()
}
