// Package discovery finds garage door controllers on the local network with
// mDNS and advertises the simulator.
//
// Controllers advertise the "_garagedoor._tcp" service. TXT records carry:
//
//	scheme=http      http or https, default http
//	path=/garage     API base path, default none
//	door=Main        human-readable door name
//	version=1.2.0    controller software version
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	scanner.Timeout = 3 * time.Second
//	devices, err := scanner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, d := range devices {
//	    fmt.Println(d, d.Endpoint())
//	}
//
// Advertising, as garage-sim does:
//
//	ad, err := discovery.Advertise(discovery.Advertisement{Instance: "Garage", Port: 8080})
//	defer ad.Shutdown()
package discovery
