// @title Hexapod Service API
// @version 1.0.0
// @description API для управления гексаподами, опроса позиции и аналоговых каналов и трансляции телеметрии по WebSocket и в Kafka.
// @host localhost:8083
// @BasePath /api/v1
package main

import "github.com/iwtcode/hexapodService/internal/app"

func main() {
	// Создаем и запускаем новый экземпляр приложения fx
	app.New().Run()
}
