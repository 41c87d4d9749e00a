// Command fetch performs one stock lookup and prints the result as JSON.
//
//	fetch all AAPL
//	fetch quote AAPL
//	fetch chart AAPL --range 3M
package main

import (
    "os"
)

func main() {
    if err := newRootCmd(os.Stdout).Execute(); err != nil {
        os.Exit(1)
    }
}
