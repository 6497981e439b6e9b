package utils

import (
	"fmt"

	"github.com/labstack/gommon/color"
)

const bannerTmpl = `
                   __         __    _                     
   _________  __  __/ /      __/ /_  (_)________  ___  _____
  / ___/ __ \/ / / / / | /| / / __ \/ / ___/ __ \/ _ \/ ___/
 (__  ) /_/ / /_/ / /| |/ |/ / / / / (__  ) /_/ /  __/ /    
/____/\____/\__,_/_/ |__/|__/_/ /_/_/____/ .___/\___/_/     
                                        /_/                 
  %s  v: %s

%s
________________________________________________________

`

// PrintBanner prints the service banner to stdout
func PrintBanner(service, version string) {
	cl := color.New()
	cl.Printf(bannerTmpl, cl.Bold(fmt.Sprintf("%-12s", service)), cl.Red(version),
		cl.Green("https://github.com/airenas/soulwhisper"))
}
