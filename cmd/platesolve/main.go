/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package main

/*****************************************************************************************************************/

import (
	"github.com/observerly/platesolve/cmd"
)

/*****************************************************************************************************************/

func main() {
	cmd.Execute()
}

/*****************************************************************************************************************/
