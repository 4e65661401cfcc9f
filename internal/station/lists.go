package station

// ClimateStations are DMI climateData stations with hourly station values.
var ClimateStations = []Station{
	{ID: "06030", Name: "Flyvestation Aalborg", Lat: 57.0964, Lon: 9.8499},
	{ID: "06041", Name: "Skagen Fyr", Lat: 57.7364, Lon: 10.6316, Coastal: true},
	{ID: "06052", Name: "Thyborøn", Lat: 56.7068, Lon: 8.2148, Coastal: true},
	{ID: "06058", Name: "Hvide Sande", Lat: 56.0048, Lon: 8.1294, Coastal: true},
	{ID: "06060", Name: "Flyvestation Karup", Lat: 56.2935, Lon: 9.1138},
	{ID: "06072", Name: "Ødum", Lat: 56.2950, Lon: 10.1286},
	{ID: "06074", Name: "Århus Syd", Lat: 56.0800, Lon: 10.1356},
	{ID: "06079", Name: "Anholt Havn", Lat: 56.7169, Lon: 11.5098, Coastal: true},
	{ID: "06080", Name: "Esbjerg Lufthavn", Lat: 55.5281, Lon: 8.5626},
	{ID: "06081", Name: "Blåvandshuk Fyr", Lat: 55.5575, Lon: 8.0828, Coastal: true},
	{ID: "06110", Name: "Flyvestation Skrydstrup", Lat: 55.2231, Lon: 9.2641},
	{ID: "06116", Name: "Store Jyndevad", Lat: 54.9000, Lon: 9.1300},
	{ID: "06120", Name: "Odense Lufthavn", Lat: 55.4759, Lon: 10.3308},
	{ID: "06123", Name: "Assens/Torø", Lat: 55.2486, Lon: 9.8892, Coastal: true},
	{ID: "06126", Name: "Årslev", Lat: 55.3156, Lon: 10.4449},
	{ID: "06141", Name: "Abed", Lat: 54.8275, Lon: 11.3283},
	{ID: "06149", Name: "Gedser", Lat: 54.5703, Lon: 11.9473, Coastal: true},
	{ID: "06151", Name: "Omø Fyr", Lat: 55.1644, Lon: 11.1433, Coastal: true},
	{ID: "06156", Name: "Holbæk", Lat: 55.7358, Lon: 11.6035},
	{ID: "06168", Name: "Nakkehoved Fyr", Lat: 56.1193, Lon: 12.3424, Coastal: true},
	{ID: "06170", Name: "Roskilde Lufthavn", Lat: 55.5867, Lon: 12.1364},
	{ID: "06180", Name: "Københavns Lufthavn", Lat: 55.6147, Lon: 12.6453},
	{ID: "06183", Name: "Drogden Fyr", Lat: 55.5364, Lon: 12.7114, Coastal: true},
	{ID: "06188", Name: "Sjælsmark", Lat: 55.8764, Lon: 12.4124},
	{ID: "06190", Name: "Bornholms Lufthavn", Lat: 55.0664, Lon: 14.7495},
	{ID: "06193", Name: "Hammer Odde Fyr", Lat: 55.2977, Lon: 14.7719, Coastal: true},
}

// MetObsStations are DMI metObs stations with 10-minute observations.
var MetObsStations = []Station{
	{ID: "06041", Name: "Skagen Fyr", Lat: 57.7364, Lon: 10.6316, Coastal: true},
	{ID: "06052", Name: "Thyborøn", Lat: 56.7068, Lon: 8.2148, Coastal: true},
	{ID: "06058", Name: "Hvide Sande", Lat: 56.0048, Lon: 8.1294, Coastal: true},
	{ID: "06073", Name: "Sletterhage Fyr", Lat: 56.0955, Lon: 10.5135, Coastal: true},
	{ID: "06079", Name: "Anholt Havn", Lat: 56.7169, Lon: 11.5098, Coastal: true},
	{ID: "06081", Name: "Blåvandshuk Fyr", Lat: 55.5575, Lon: 8.0828, Coastal: true},
	{ID: "06119", Name: "Kegnæs Fyr", Lat: 54.8566, Lon: 9.9871, Coastal: true},
	{ID: "06123", Name: "Assens/Torø", Lat: 55.2486, Lon: 9.8892, Coastal: true},
	{ID: "06149", Name: "Gedser", Lat: 54.5703, Lon: 11.9473, Coastal: true},
	{ID: "06151", Name: "Omø Fyr", Lat: 55.1644, Lon: 11.1433, Coastal: true},
	{ID: "06168", Name: "Nakkehoved Fyr", Lat: 56.1193, Lon: 12.3424, Coastal: true},
	{ID: "06183", Name: "Drogden Fyr", Lat: 55.5364, Lon: 12.7114, Coastal: true},
	{ID: "06193", Name: "Hammer Odde Fyr", Lat: 55.2977, Lon: 14.7719, Coastal: true},
}

// OceanStations are DMI oceanObs tide gauges and buoys.
var OceanStations = []Station{
	{ID: "20047", Name: "Skagen Havn", Lat: 57.7184, Lon: 10.5886, Coastal: true, HasTemp: true, HasLevel: true},
	{ID: "20101", Name: "Frederikshavn", Lat: 57.4366, Lon: 10.5469, Coastal: true, HasLevel: true},
	{ID: "22331", Name: "Århus Havn", Lat: 56.1496, Lon: 10.2226, Coastal: true, HasTemp: true, HasLevel: true},
	{ID: "24122", Name: "Thyborøn Havn", Lat: 56.7069, Lon: 8.2205, Coastal: true, HasTemp: true, HasLevel: true},
	{ID: "25149", Name: "Esbjerg Havn", Lat: 55.4607, Lon: 8.4416, Coastal: true, HasTemp: true, HasLevel: true},
	{ID: "25344", Name: "Hvide Sande Kyst", Lat: 56.0005, Lon: 8.1283, Coastal: true, HasLevel: true},
	{ID: "26457", Name: "Fredericia", Lat: 55.5615, Lon: 9.7488, Coastal: true, HasTemp: true, HasLevel: true},
	{ID: "28548", Name: "Slipshavn", Lat: 55.2870, Lon: 10.8290, Coastal: true, HasLevel: true},
	{ID: "29393", Name: "Korsør", Lat: 55.3306, Lon: 11.1418, Coastal: true, HasTemp: true, HasLevel: true},
	{ID: "30336", Name: "København", Lat: 55.7045, Lon: 12.5997, Coastal: true, HasTemp: true, HasLevel: true},
	{ID: "30357", Name: "Drogden", Lat: 55.5360, Lon: 12.7114, Coastal: true, HasTemp: true, HasLevel: true},
	{ID: "31616", Name: "Gedser Havn", Lat: 54.5729, Lon: 11.9267, Coastal: true, HasTemp: true, HasLevel: true},
	{ID: "32048", Name: "Tejn", Lat: 55.2491, Lon: 14.8365, Coastal: true, HasTemp: true, HasLevel: true},
}
